package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspaper-pipeline/internal/config"
	"newspaper-pipeline/internal/observability"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HttpConfig{
			UserAgent:                 "test-agent",
			ConnectTimeoutMS:          1000,
			TotalTimeoutMS:            5000,
			MaxIdleConnections:        10,
			MaxIdleConnectionsPerHost: 10,
			IdleConnectionTimeoutS:    10,
			AcceptLanguage:            map[string]string{"es": "es-ES,es;q=0.9"},
		},
		Backoff: config.BackoffConfig{
			MinMS:     1,
			MaxMS:     5,
			JitterPct: 20,
		},
		RateLimit: config.RateLimitConfig{
			MaxConcurrentPerHost: 4,
			RPM:                  60000,
		},
		RobotsCacheTTLHours: 1,
	}
}

func TestBackoffCalculation(t *testing.T) {
	cfg := &config.Config{
		Backoff: config.BackoffConfig{
			MinMS:     250,
			MaxMS:     2000,
			JitterPct: 20,
		},
	}

	fetcher := NewFetcher(cfg, observability.Nop())

	for attempt := 1; attempt <= 5; attempt++ {
		backoff := fetcher.calculateBackoff(attempt)
		if backoff < cfg.GetBackoffMin() || backoff > cfg.GetBackoffMax()*2 {
			t.Errorf("Backoff out of expected range: %v", backoff)
		}
	}
}

func TestFetchSendsHeadersAndReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "es-ES,es;q=0.9", r.Header.Get("Accept-Language"))
		_, _ = fmt.Fprint(w, "<h1>Hola</h1>")
	}))
	defer srv.Close()

	f := NewFetcher(testConfig(), observability.Nop())
	resp, err := f.Fetch(context.Background(), srv.URL+"/n/1", "es")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<h1>Hola</h1>", string(resp.Body))
}

func TestFetchDecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("compressed"))
		_ = gz.Close()
	}))
	defer srv.Close()

	f := NewFetcher(testConfig(), observability.Nop())
	resp, err := f.Fetch(context.Background(), srv.URL, "es")
	require.NoError(t, err)
	assert.Equal(t, "compressed", string(resp.Body))
}

func TestFetchNonSuccessStatusIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFetcher(testConfig(), observability.Nop())
	_, err := f.Fetch(context.Background(), srv.URL+"/gone", "es")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.HTTP.MaxRetries = 2
	f := NewFetcher(cfg, observability.Nop())

	resp, err := f.Fetch(context.Background(), srv.URL, "es")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchWithoutRetriesFailsOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(testConfig(), observability.Nop())
	_, err := f.Fetch(context.Background(), srv.URL, "es")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := NewFetcher(testConfig(), observability.Nop())
	_, err := f.Fetch(context.Background(), addr, "es")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
}

func TestFetchRejectsRelativeURL(t *testing.T) {
	f := NewFetcher(testConfig(), observability.Nop())
	_, err := f.Fetch(context.Background(), "/n/1", "es")

	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))
}

func TestFetchHonoursRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		_, _ = fmt.Fprint(w, "page")
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.HTTP.RespectRobots = true
	f := NewFetcher(cfg, observability.Nop())

	_, err := f.Fetch(context.Background(), srv.URL+"/private/story", "es")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisallowedByRobots))

	resp, err := f.Fetch(context.Background(), srv.URL+"/public/story", "es")
	require.NoError(t, err)
	assert.Equal(t, "page", string(resp.Body))
}

func TestFetchCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "late")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(testConfig(), observability.Nop())
	_, err := f.Fetch(ctx, srv.URL, "es")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.HTTP.MaxBodyKB = 1
	cfg.HTTP.MaxRetries = 2
	f := NewFetcher(cfg, observability.Nop())

	_, err := f.Fetch(context.Background(), srv.URL, "es")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.Equal(t, int32(1), calls.Load(), "oversized page must not be downloaded again")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusOK, fetchErr.StatusCode)

	cfg.HTTP.MaxBodyKB = 2
	resp, err := f.Fetch(context.Background(), srv.URL, "es")
	require.NoError(t, err)
	assert.Len(t, resp.Body, 2048)
}

func TestFetchRetryAfterIsCappedByBackoffMax(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.HTTP.MaxRetries = 1
	f := NewFetcher(cfg, observability.Nop())

	start := time.Now()
	resp, err := f.Fetch(context.Background(), srv.URL, "es")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-1"))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2026 07:28:00 GMT"))
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(http.StatusTooManyRequests))
	assert.True(t, retryable(http.StatusBadGateway))
	assert.False(t, retryable(http.StatusNotFound))
	assert.False(t, retryable(http.StatusOK))
}

func TestRateLimiterCapsConcurrency(t *testing.T) {
	rl := NewRateLimiter(2, 60000)
	ctx := context.Background()

	r1, err := rl.Acquire(ctx, "example.com")
	require.NoError(t, err)
	r2, err := rl.Acquire(ctx, "example.com")
	require.NoError(t, err)

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = rl.Acquire(blocked, "example.com")
	assert.Error(t, err)

	// Another host has its own budget
	r3, err := rl.Acquire(ctx, "other.com")
	require.NoError(t, err)

	r1()
	r4, err := rl.Acquire(ctx, "example.com")
	require.NoError(t, err)

	r2()
	r3()
	r4()
}

func TestRateLimiterWithoutRPMAndDoubleRelease(t *testing.T) {
	rl := NewRateLimiter(1, 0)
	ctx := context.Background()

	release, err := rl.Acquire(ctx, "example.com")
	require.NoError(t, err)
	release()
	release()

	r1, err := rl.Acquire(ctx, "example.com")
	require.NoError(t, err)

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = rl.Acquire(blocked, "example.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	r1()
}

func TestAcceptLanguage(t *testing.T) {
	mapping := map[string]string{"es": "es-ES,es;q=0.9"}

	assert.Equal(t, "es-ES,es;q=0.9", acceptLanguage(mapping, "es"))
	assert.Equal(t, "fr", acceptLanguage(mapping, "fr"))
	assert.Empty(t, acceptLanguage(mapping, "auto"))
	assert.Empty(t, acceptLanguage(mapping, ""))
	assert.Empty(t, acceptLanguage(mapping, "not a tag!"))
}

func TestFetchAutoLanguageSendsNoAcceptLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Values("Accept-Language"))
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	f := NewFetcher(testConfig(), observability.Nop())
	_, err := f.Fetch(context.Background(), srv.URL, "auto")
	require.NoError(t, err)
}

func TestRendererAttachFailureKillsChrome(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := "ws://" + srv.Listener.Addr().String()
	srv.Close()

	killed := false
	_, err := attach(addr, func() { killed = true })
	require.Error(t, err)
	assert.True(t, killed)
}

func TestRendererCloseWithoutLaunch(t *testing.T) {
	r := NewRenderer(testConfig(), observability.Nop())
	assert.NoError(t, r.Close())
}
