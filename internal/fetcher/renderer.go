package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"newspaper-pipeline/internal/config"
	"newspaper-pipeline/internal/observability"
)

// Renderer loads pages in headless Chrome for sites that build their
// listing with JavaScript. It returns the rendered DOM in the same shape as
// Fetcher so the scraper does not care which one it talks to.
type Renderer struct {
	cfg     *config.Config
	logger  *observability.Logger
	mu      sync.Mutex
	browser *rod.Browser
}

func NewRenderer(cfg *config.Config, logger *observability.Logger) *Renderer {
	return &Renderer{cfg: cfg, logger: logger}
}

func (r *Renderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(true)
	if r.cfg.Rod.ChromePath != "" {
		l = l.Bin(r.cfg.Rod.ChromePath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	browser, err := attach(controlURL, l.Kill)
	if err != nil {
		return nil, err
	}

	r.browser = browser
	return browser, nil
}

// attach подключается к запущенному Chrome; при неудаче процесс убивается через kill.
func attach(controlURL string, kill func()) (*rod.Browser, error) {
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		kill()
		return nil, fmt.Errorf("failed to connect to chrome: %w", err)
	}
	return browser, nil
}

func (r *Renderer) Fetch(ctx context.Context, urlStr string, lang string) (*FetchResponse, error) {
	browser, err := r.connect()
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: fmt.Errorf("failed to open tab: %w", err)}
	}
	defer func() {
		if err := page.Close(); err != nil {
			r.logger.Warn("Failed to close tab", "url", urlStr, "error", err)
		}
	}()

	page = page.Timeout(r.cfg.GetRodPageTimeout())

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      r.cfg.HTTP.UserAgent,
		AcceptLanguage: acceptLanguage(r.cfg.HTTP.AcceptLanguage, lang),
	}); err != nil {
		return nil, &FetchError{URL: urlStr, Err: fmt.Errorf("failed to set user agent: %w", err)}
	}

	if err := page.Navigate(urlStr); err != nil {
		return nil, &FetchError{URL: urlStr, Err: fmt.Errorf("navigation failed: %w", err)}
	}

	if err := page.Timeout(r.cfg.GetRodWaitLoadTimeout()).WaitLoad(); err != nil {
		return nil, &FetchError{URL: urlStr, Err: fmt.Errorf("wait load failed: %w", err)}
	}

	// Lazy-loaded blocks need a moment after the load event
	if delay := r.cfg.GetRodLazyLoadDelay(); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &FetchError{URL: urlStr, Err: ctx.Err()}
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: fmt.Errorf("failed to read DOM: %w", err)}
	}

	finalURL := urlStr
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	r.logger.Debug("Page rendered", "url", finalURL, "body_size", len(html))

	return &FetchResponse{
		StatusCode: 200,
		Body:       []byte(html),
		URL:        finalURL,
	}, nil
}

// Close shuts the browser down if it was ever started.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}
