package scraper

import (
	"context"

	"go.uber.org/zap"

	"github.com/williampepple1/coze-template-scraper/internal/config"
	"github.com/williampepple1/coze-template-scraper/internal/io"
)

// FileScraper reads a listing page saved from the browser. The URL passed to
// Fetch is only used for reporting.
type FileScraper struct {
	Config *config.AppConfig
	Reader *io.DocumentReader
	logger *zap.Logger
}

// NewFileScraper creates a new file scraper
func NewFileScraper(config *config.AppConfig, logger *zap.Logger) *FileScraper {
	return &FileScraper{
		Config: config,
		Reader: io.NewDocumentReader(&config.IO),
		logger: logger,
	}
}

// Name identifies the source in summaries and logs
func (s *FileScraper) Name() string {
	return config.SourceFile
}

// Target returns the configured input file
func (s *FileScraper) Target() string {
	return s.Config.IO.InputFile
}

// Fetch parses the configured input file
func (s *FileScraper) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("reading saved page", zap.String("file", s.Config.IO.InputFile), zap.String("url", url))
	doc, err := s.Reader.GetDocument()
	if err != nil {
		return nil, err
	}
	return &Page{URL: url, Document: doc}, nil
}
