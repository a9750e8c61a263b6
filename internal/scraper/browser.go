package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/williampepple1/coze-template-scraper/internal/config"
	"github.com/williampepple1/coze-template-scraper/internal/proxy"
)

// BrowserScraper renders the page in headless Chrome, so cards injected by
// client-side scripts are present in the snapshot.
type BrowserScraper struct {
	Config *config.AppConfig
	Proxy  *proxy.Manager
	logger *zap.Logger
}

// NewBrowserScraper creates a new browser scraper
func NewBrowserScraper(config *config.AppConfig, logger *zap.Logger) *BrowserScraper {
	return &BrowserScraper{
		Config: config,
		Proxy:  proxy.NewManager(&config.Proxies),
		logger: logger,
	}
}

// Name identifies the source in summaries and logs
func (s *BrowserScraper) Name() string {
	return config.SourceBrowser
}

// Fetch loads url in a fresh browser and snapshots the rendered DOM. The
// snapshot is a single round trip; if ctx ends first the browser is torn down
// and ctx's error is returned.
func (s *BrowserScraper) Fetch(ctx context.Context, url string) (*Page, error) {
	// Configure browser options
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.Config.Browser.Headless),
		chromedp.UserAgent(s.Config.Browser.UserAgent),
	)

	proxyServer, err := s.Proxy.BrowserProxy()
	if err != nil {
		return nil, err
	}
	if proxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(proxyServer))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	errChan := make(chan error, 1)
	var html string
	var screenshot []byte

	go func() {
		tasks := chromedp.Tasks{
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			s.waitForCards(),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		}

		if s.Config.Browser.Screenshot {
			tasks = append(tasks, chromedp.CaptureScreenshot(&screenshot))
		}

		errChan <- chromedp.Run(browserCtx, tasks)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", url, err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("render %s: %w", url, ctx.Err())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	page := &Page{URL: url, Document: doc}
	if s.Config.Browser.Screenshot && len(screenshot) > 0 {
		page.Screenshot = s.saveScreenshot(screenshot)
	}
	return page, nil
}

// waitForCards gives client-side rendering up to WaitTime for the first card
// to show. A page that never shows one is still snapshotted.
func (s *BrowserScraper) waitForCards() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if s.Config.Browser.WaitTime <= 0 {
			return nil
		}
		if s.Config.Browser.WaitSelector == "" {
			return chromedp.Sleep(s.Config.Browser.WaitTime).Do(ctx)
		}

		waitCtx, cancel := context.WithTimeout(ctx, s.Config.Browser.WaitTime)
		defer cancel()
		err := chromedp.WaitReady(s.Config.Browser.WaitSelector, chromedp.ByQuery).Do(waitCtx)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Debug("no card rendered before wait time",
				zap.String("selector", s.Config.Browser.WaitSelector),
				zap.Duration("wait_time", s.Config.Browser.WaitTime))
			return nil
		}
		return err
	})
}

func (s *BrowserScraper) saveScreenshot(screenshot []byte) string {
	if err := os.MkdirAll(s.Config.Browser.ScreenshotDir, 0755); err != nil {
		s.logger.Warn("create screenshot directory", zap.Error(err))
		return ""
	}

	path := filepath.Join(s.Config.Browser.ScreenshotDir, fmt.Sprintf("%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(path, screenshot, 0644); err != nil {
		s.logger.Warn("save screenshot", zap.String("path", path), zap.Error(err))
		return ""
	}
	return path
}
