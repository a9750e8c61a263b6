package scraper

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/williampepple1/coze-template-scraper/internal/config"
)

// Page is a loaded listing page, ready for extraction
type Page struct {
	URL        string
	Document   *goquery.Document
	StatusCode int
	Screenshot string
}

// Fetcher loads the listing page. Implementations must give up once ctx is
// done.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Local is implemented by fetchers that read a saved page rather than the
// URL they are given. Target names what they read.
type Local interface {
	Fetcher
	Target() string
}

// New creates a fetcher for the configured source
func New(cfg *config.AppConfig, logger *zap.Logger) (Fetcher, error) {
	switch cfg.Scraper.Source {
	case config.SourceBrowser, "":
		return NewBrowserScraper(cfg, logger), nil
	case config.SourceHTTP:
		return NewHTTPScraper(cfg, logger), nil
	case config.SourceFile:
		return NewFileScraper(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported source: %s", cfg.Scraper.Source)
	}
}
