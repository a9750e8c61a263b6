package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/williampepple1/coze-template-scraper/internal/config"
	"github.com/williampepple1/coze-template-scraper/internal/extraction"
	"github.com/williampepple1/coze-template-scraper/internal/io"
	"github.com/williampepple1/coze-template-scraper/internal/metrics"
	"github.com/williampepple1/coze-template-scraper/internal/scraper"
	"github.com/williampepple1/coze-template-scraper/pkg/models"
)

var (
	// ErrNotApplicable is returned for pages outside the template listing
	ErrNotApplicable = errors.New("not a coze template listing page")
	// ErrBusy is returned while another export is running
	ErrBusy = errors.New("an export is already in progress")
)

// Applicable reports whether url points at the supported listing page
func Applicable(url, pattern string) bool {
	return pattern != "" && strings.Contains(url, pattern)
}

// Runner drives one export at a time: fetch, extract, encode, deliver
type Runner struct {
	Config    *config.AppConfig
	Fetcher   scraper.Fetcher
	Extractor *extraction.Extractor
	Writer    *io.ResultWriter
	Metrics   *metrics.Metrics
	logger    *zap.Logger

	inProgress atomic.Bool
	mu         sync.Mutex
	applicable bool
	count      int
}

// NewRunner wires a runner from the configuration. m may be nil.
func NewRunner(cfg *config.AppConfig, fetcher scraper.Fetcher, m *metrics.Metrics, logger *zap.Logger) (*Runner, error) {
	extractor, err := extraction.NewExtractor(&cfg.Extraction)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	return &Runner{
		Config:    cfg,
		Fetcher:   fetcher,
		Extractor: extractor,
		Writer:    io.NewResultWriter(&cfg.IO),
		Metrics:   m,
		logger:    logger,
	}, nil
}

// Check records and returns the applicability of url
func (r *Runner) Check(url string) bool {
	ok := Applicable(url, r.Config.Export.URLPattern)
	r.mu.Lock()
	r.applicable = ok
	r.mu.Unlock()
	return ok
}

// Status returns the applicability of the last checked page, whether an
// export is running and how many records the last one produced.
func (r *Runner) Status() models.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.Status{
		Applicable: r.applicable,
		InProgress: r.inProgress.Load(),
		Count:      r.count,
	}
}

// Collect loads url and extracts its records. An empty url means there is no
// page to look at: the result is an empty summary with nil records and no
// error. Local fetchers read their own target instead, and skip the URL
// pattern check. The fetch is bounded by the scraper timeout.
func (r *Runner) Collect(ctx context.Context, url string) (models.Summary, []models.Record, error) {
	summary := models.Summary{
		RunID:     uuid.NewString(),
		URL:       url,
		Source:    r.Fetcher.Name(),
		Timestamp: time.Now(),
	}
	// a saved page needs no URL and is not gated on one
	local, isLocal := r.Fetcher.(scraper.Local)
	if isLocal && strings.TrimSpace(url) == "" {
		url = local.Target()
		summary.URL = url
	}
	logger := r.logger.With(zap.String("run_id", summary.RunID), zap.String("url", url))

	if strings.TrimSpace(url) == "" {
		logger.Warn("no target page, nothing to export")
		r.setState(false, 0)
		return summary, nil, nil
	}

	summary.Applicable = r.Check(url)
	if !summary.Applicable && !r.Config.Export.Force && !isLocal {
		r.Metrics.ObserveExport(summary.Source, metrics.ResultNotApplicable, 0, 0)
		return summary, nil, fmt.Errorf("%w: %s", ErrNotApplicable, url)
	}

	if !r.inProgress.CompareAndSwap(false, true) {
		r.Metrics.ObserveExport(summary.Source, metrics.ResultBusy, 0, 0)
		return summary, nil, ErrBusy
	}
	defer r.inProgress.Store(false)
	r.setCount(0)

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.Config.Scraper.Timeout)
	defer cancel()

	logger.Info("fetching page", zap.String("source", summary.Source), zap.Duration("timeout", r.Config.Scraper.Timeout))
	page, err := r.Fetcher.Fetch(ctx, url)
	if err != nil {
		summary.Duration = time.Since(start)
		r.Metrics.ObserveExport(summary.Source, metrics.ResultFetchError, 0, summary.Duration)
		logger.Error("fetch failed", zap.Error(err), zap.Duration("duration", summary.Duration))
		return summary, nil, err
	}

	records := r.Extractor.Extract(page.Document)
	summary.Count = len(records)
	summary.Screenshot = page.Screenshot
	summary.Duration = time.Since(start)
	r.setCount(len(records))
	r.Metrics.ObserveExport(summary.Source, metrics.ResultOK, len(records), summary.Duration)

	if len(records) == 0 {
		logger.Warn("no template cards found", zap.String("card_selector", r.Config.Extraction.Card))
	}
	logger.Info("extracted records", zap.Int("count", len(records)), zap.Duration("duration", summary.Duration))
	return summary, records, nil
}

// Export collects url and saves the records to the output file
func (r *Runner) Export(ctx context.Context, url string) (models.Summary, error) {
	summary, records, err := r.Collect(ctx, url)
	if err != nil || records == nil {
		return summary, err
	}

	path, err := r.Writer.SaveToFile(records)
	if err != nil {
		return summary, err
	}
	summary.Output = path

	r.logger.Info("export saved",
		zap.String("run_id", summary.RunID),
		zap.String("path", path),
		zap.Int("count", summary.Count))
	return summary, nil
}

func (r *Runner) setCount(n int) {
	r.mu.Lock()
	r.count = n
	r.mu.Unlock()
}

func (r *Runner) setState(applicable bool, n int) {
	r.mu.Lock()
	r.applicable = applicable
	r.count = n
	r.mu.Unlock()
}
