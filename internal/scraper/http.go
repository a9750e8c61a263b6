package scraper

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/williampepple1/coze-template-scraper/internal/config"
	"github.com/williampepple1/coze-template-scraper/internal/proxy"
)

// HTTPScraper fetches the server-rendered page without running scripts
type HTTPScraper struct {
	Config *config.AppConfig
	Proxy  *proxy.Manager
	logger *zap.Logger
}

// NewHTTPScraper creates a new HTTP scraper
func NewHTTPScraper(config *config.AppConfig, logger *zap.Logger) *HTTPScraper {
	return &HTTPScraper{
		Config: config,
		Proxy:  proxy.NewManager(&config.Proxies),
		logger: logger,
	}
}

// Name identifies the source in summaries and logs
func (s *HTTPScraper) Name() string {
	return config.SourceHTTP
}

// Fetch downloads url and parses it. Transport failures and non-2xx answers
// are retried up to MaxRetries times.
func (s *HTTPScraper) Fetch(ctx context.Context, url string) (*Page, error) {
	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(s.Config.Scraper.Timeout)

	proxyFunc, err := s.Proxy.ProxyFunc()
	if err != nil {
		return nil, err
	}
	if proxyFunc != nil {
		collector.SetProxyFunc(proxyFunc)
	}

	collector.OnRequest(func(r *colly.Request) {
		// Set a random user agent if available
		if agents := s.Config.Scraper.UserAgents; len(agents) > 0 {
			r.Headers.Set("User-Agent", agents[rand.Intn(len(agents))])
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	})

	var page *Page
	var lastErr error

	collector.OnResponse(func(r *colly.Response) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			lastErr = fmt.Errorf("parse: %w", err)
			return
		}
		page = &Page{URL: r.Request.URL.String(), Document: doc, StatusCode: r.StatusCode}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			lastErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		lastErr = err
	})

	for retries := 0; retries <= s.Config.Scraper.MaxRetries; retries++ {
		if retries > 0 {
			// Wait before retrying
			retryWait := s.Config.Scraper.RetryDelay * time.Duration(retries)
			s.logger.Info("retrying fetch",
				zap.String("url", url),
				zap.Duration("wait", retryWait),
				zap.Int("attempt", retries),
				zap.Int("max_retries", s.Config.Scraper.MaxRetries),
				zap.Error(lastErr))

			select {
			case <-time.After(retryWait):
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch %s: %w", url, ctx.Err())
			}
		}

		page, lastErr = nil, nil
		if err := collector.Visit(url); err != nil && lastErr == nil {
			lastErr = err
		}
		if lastErr == nil && page != nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, ctx.Err())
		}
	}

	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}
