// Package jikan enriches catalog entries with MyAnimeList data via
// the Jikan REST API: community scores, broadcast schedules, studios,
// and the genre taxonomy the catalog filters are built from.
package jikan

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/haruapp/haru-server/internal/fetchcache"
	"github.com/haruapp/haru-server/internal/metadata"
	"github.com/haruapp/haru-server/internal/ratelimit"
)

const (
	defaultBaseURL = "https://api.jikan.moe/v4"

	// Jikan enforces 3 requests per second and 60 per minute; one per
	// second stays under both across long runs.
	defaultRPS   = 1.0
	defaultBurst = 3

	defaultTimeout = 30 * time.Second
)

// Client is a rate-limited Jikan API client.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *ratelimit.KeyedRateLimiter
	cache   *fetchcache.Cache
	retry   metadata.RetryOptions
	logger  *slog.Logger
}

// Options configures a Client. The zero value works against the public
// API without caching.
type Options struct {
	// BaseURL overrides the public endpoint, mainly for tests.
	BaseURL string
	// Cache, when set, replays previous responses within their TTL.
	Cache *fetchcache.Cache
	// Logger for request diagnostics; nil falls back to stderr.
	Logger *slog.Logger
}

// New creates a new Jikan client.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: baseURL,
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		cache:   opts.Cache,
		retry:   metadata.DefaultRetry,
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// doRequest executes a cached, rate-limited GET against the API.
func (c *Client) doRequest(ctx context.Context, rawURL string) ([]byte, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(rawURL); ok {
			c.logger.Debug("jikan cache hit", "url", rawURL)
			return body, nil
		}
	}

	if err := c.limiter.Wait(ctx, "jikan"); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", "haru-refresh/1.0")

	c.logger.Debug("jikan request", "url", rawURL)

	status, body, err := metadata.Get(ctx, c.http, rawURL, header, c.retry, c.logger)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		if c.cache != nil {
			if err := c.cache.Set(rawURL, body); err != nil {
				c.logger.Warn("jikan cache write failed", "url", rawURL, "error", err)
			}
		}
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		if status >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", status, metadata.Truncate(body))
	}
}
