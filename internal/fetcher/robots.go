package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"newspaper-pipeline/internal/observability"
)

// maxRobotsBodyBytes limits the size of robots.txt responses we will read.
const maxRobotsBodyBytes = 512 * 1024

type RobotsCache struct {
	cache     map[string]*robotsEntry
	ttl       time.Duration
	userAgent string
	mu        sync.RWMutex
	logger    *observability.Logger
}

type robotsEntry struct {
	data      *robotstxt.RobotsData // nil means allow all
	expiresAt time.Time
}

func NewRobotsCache(ttl time.Duration, userAgent string, logger *observability.Logger) *RobotsCache {
	return &RobotsCache{
		cache:     make(map[string]*robotsEntry),
		ttl:       ttl,
		userAgent: userAgent,
		logger:    logger,
	}
}

// IsAllowed reports whether the user agent may fetch u. A missing or
// unreachable robots.txt allows everything.
func (rc *RobotsCache) IsAllowed(ctx context.Context, u *url.URL, client *http.Client) bool {
	key := u.Scheme + "://" + strings.ToLower(u.Host)

	rc.mu.RLock()
	cached, exists := rc.cache[key]
	rc.mu.RUnlock()

	if !exists || time.Now().After(cached.expiresAt) {
		cached = rc.fetch(ctx, key, client)
		rc.mu.Lock()
		rc.cache[key] = cached
		rc.mu.Unlock()
	}

	if cached.data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return cached.data.TestAgent(path, rc.userAgent)
}

func (rc *RobotsCache) fetch(ctx context.Context, origin string, client *http.Client) *robotsEntry {
	entry := &robotsEntry{expiresAt: time.Now().Add(rc.ttl)}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return entry
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		// Network error: assume allowed
		rc.logger.Debug("robots.txt unreachable", "origin", origin, "error", err)
		return entry
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// No robots.txt: assume allowed
		return entry
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return entry
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		rc.logger.Warn("Failed to parse robots.txt", "origin", origin, "error", err)
		return entry
	}

	entry.data = data
	return entry
}
