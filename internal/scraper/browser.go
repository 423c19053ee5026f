package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"slotledger/internal/config"
	"slotledger/internal/errors"
)

// URLSource renders a page in headless Chrome and returns its final DOM.
// Hall pages build their tables with script, so a plain GET is not enough.
type URLSource struct {
	URL          string
	WaitSelector string
	UserAgent    string
	Headless     bool
	Timeout      time.Duration

	logger *slog.Logger
}

// NewURLSource creates a browser-backed source using the scraper settings.
func NewURLSource(url string, cfg config.ScraperConfig, logger *slog.Logger) *URLSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &URLSource{
		URL:          url,
		WaitSelector: cfg.WaitSelector,
		UserAgent:    cfg.UserAgent,
		Headless:     cfg.Headless,
		Timeout:      cfg.Timeout,
		logger:       logger.With(slog.String("component", "url_source")),
	}
}

// Fetch navigates to URL, waits for WaitSelector when set and returns the
// document's outer HTML.
func (s *URLSource) Fetch(ctx context.Context) ([]byte, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", s.Headless))
	if s.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.UserAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if s.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		browserCtx, cancelTimeout = context.WithTimeout(browserCtx, s.Timeout)
		defer cancelTimeout()
	}

	var markup string
	start := time.Now()
	if err := chromedp.Run(browserCtx, s.tasks(&markup)); err != nil {
		return nil, errors.NewParsingError("failed to render page", err).
			WithContext("url", s.URL)
	}

	s.logger.Info("page rendered",
		slog.String("url", s.URL),
		slog.Int("bytes", len(markup)),
		slog.Duration("duration", time.Since(start)))
	return []byte(markup), nil
}

func (s *URLSource) tasks(markup *string) chromedp.Tasks {
	tasks := chromedp.Tasks{chromedp.Navigate(s.URL)}
	if s.WaitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(s.WaitSelector, chromedp.ByQuery))
	}
	return append(tasks, chromedp.OuterHTML("html", markup, chromedp.ByQuery))
}

// Describe implements Source.
func (s *URLSource) Describe() string {
	return fmt.Sprintf("url:%s", s.URL)
}
