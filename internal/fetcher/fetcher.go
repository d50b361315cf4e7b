package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"newspaper-pipeline/internal/config"
	"newspaper-pipeline/internal/observability"
)

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Fetcher качает страницы газет: robots.txt, лимит на хост, ретраи с backoff.
type Fetcher struct {
	client  *http.Client
	cfg     *config.Config
	logger  *observability.Logger
	robots  *RobotsCache
	limiter *RateLimiter
}

type FetchResponse struct {
	StatusCode int
	Body       []byte
	URL        string
	Headers    http.Header
}

func NewFetcher(cfg *config.Config, logger *observability.Logger) *Fetcher {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: cfg.GetConnectTimeout()}).DialContext,
		MaxIdleConns:        cfg.HTTP.MaxIdleConnections,
		MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConnectionsPerHost,
		IdleConnTimeout:     cfg.GetIdleConnectionTimeout(),
	}

	f := &Fetcher{
		client:  &http.Client{Timeout: cfg.GetTotalTimeout(), Transport: transport},
		cfg:     cfg,
		logger:  logger,
		limiter: NewRateLimiter(cfg.RateLimit.MaxConcurrentPerHost, cfg.RateLimit.RPM),
	}
	if cfg.HTTP.RespectRobots {
		f.robots = NewRobotsCache(cfg.GetRobotsCacheTTL(), cfg.HTTP.UserAgent, logger)
	}
	return f
}

// attempt - итог одной попытки; status == 0 значит, что ответа не было
type attempt struct {
	resp       *FetchResponse
	status     int
	err        error
	retryAfter time.Duration
}

// Fetch downloads a page. Any failure, including a non-2xx final status,
// comes back as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, lang string) (*FetchResponse, error) {
	target, err := url.Parse(rawURL)
	switch {
	case err != nil:
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("invalid URL: %w", err)}
	case target.Host == "":
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("invalid URL: missing host")}
	}

	if f.robots != nil && !f.robots.IsAllowed(ctx, target, f.client) {
		return nil, &FetchError{URL: rawURL, Err: ErrDisallowedByRobots}
	}

	release, err := f.limiter.Acquire(ctx, target.Host)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("rate limit: %w", err)}
	}
	defer release()

	var last attempt
	for n := 0; ; n++ {
		last = f.try(ctx, rawURL, lang)

		switch {
		case last.err == nil && last.status >= 200 && last.status <= 299:
			return last.resp, nil
		case last.err == nil && !retryable(last.status):
			return nil, &FetchError{URL: rawURL, StatusCode: last.status}
		case errors.Is(last.err, ErrBodyTooLarge):
			return nil, &FetchError{URL: rawURL, StatusCode: last.status, Err: last.err}
		case ctx.Err() != nil:
			return nil, &FetchError{URL: rawURL, StatusCode: last.status, Err: ctx.Err()}
		case n >= f.cfg.HTTP.MaxRetries:
			return nil, f.exhausted(rawURL, last)
		}

		wait := max(f.calculateBackoff(n+1), min(last.retryAfter, f.cfg.GetBackoffMax()))
		f.logger.Debug("Retrying fetch", "url", rawURL, "attempt", n+1, "status", last.status, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, &FetchError{URL: rawURL, StatusCode: last.status, Err: ctx.Err()}
		}
	}
}

func (f *Fetcher) exhausted(rawURL string, last attempt) *FetchError {
	err := last.err
	if err == nil {
		err = fmt.Errorf("server error: %d", last.status)
	}
	if f.cfg.HTTP.MaxRetries > 0 {
		err = fmt.Errorf("failed after %d retries: %w", f.cfg.HTTP.MaxRetries, err)
	}
	return &FetchError{URL: rawURL, StatusCode: last.status, Err: err}
}

// retryable: 5xx и 429, остальное не повторяем
func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

func (f *Fetcher) try(ctx context.Context, rawURL, lang string) attempt {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return attempt{err: err}
	}
	req.Header.Set("User-Agent", f.cfg.HTTP.UserAgent)
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Accept-Encoding", "gzip")
	if al := acceptLanguage(f.cfg.HTTP.AcceptLanguage, lang); al != "" {
		req.Header.Set("Accept-Language", al)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return attempt{err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Warn("Failed to close response body", "url", rawURL, "error", err)
		}
	}()

	if retryable(resp.StatusCode) {
		return attempt{status: resp.StatusCode, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return attempt{status: resp.StatusCode}
	}

	body, err := f.readBody(resp)
	if err != nil {
		// битое тело повторяется, слишком большое нет (см. Fetch)
		return attempt{status: resp.StatusCode, err: err}
	}

	f.logger.Debug("Response received",
		"url", rawURL,
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
		"body_size", len(body),
	)

	return attempt{
		status: resp.StatusCode,
		resp: &FetchResponse{
			StatusCode: resp.StatusCode,
			Body:       body,
			URL:        resp.Request.URL.String(),
			Headers:    resp.Header,
		},
	}
}

// readBody распаковывает gzip и режет тело по http.max_body_kb (0 - без лимита)
func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	limit := f.cfg.GetMaxBodyBytes()
	if limit <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

// parseRetryAfter понимает только секунды; HTTP-date игнорируется
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// calculateBackoff: min * 2^(n-1), не больше max, плюс ±jitter_pct%
func (f *Fetcher) calculateBackoff(n int) time.Duration {
	lo, hi := f.cfg.GetBackoffMin(), f.cfg.GetBackoffMax()

	base := hi
	if n >= 1 && n < 31 {
		if exp := lo << (n - 1); exp > 0 && exp < hi {
			base = exp
		}
	}

	spread := float64(base) * float64(f.cfg.Backoff.JitterPct) / 100
	d := time.Duration(float64(base) + (rand.Float64()*2-1)*spread)
	return max(d, lo, 0)
}

// acceptLanguage берёт значение из http.accept_language, иначе сам код языка.
// "auto" и всё, что не парсится как BCP 47, дают пустую строку: заголовок не шлём.
func acceptLanguage(mapping map[string]string, lang string) string {
	if v, ok := mapping[lang]; ok {
		return v
	}
	if lang == "" || lang == "auto" {
		return ""
	}
	if _, err := language.Parse(lang); err != nil {
		return ""
	}
	return lang
}
