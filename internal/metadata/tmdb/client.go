// Package tmdb looks up poster and backdrop art on The Movie Database
// by IMDB id. TMDB art is optional: the pipeline falls back to Kitsu
// posters when no key is configured or a title has no match.
package tmdb

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
	defaultBaseURL = "https://api.themoviedb.org/3"

	defaultRPS   = 4.0
	defaultBurst = 10

	defaultTimeout = 30 * time.Second
)

// Client is a rate-limited TMDB API client.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *ratelimit.KeyedRateLimiter
	cache   *fetchcache.Cache
	retry   metadata.RetryOptions
	logger  *slog.Logger
}

// Options configures a Client.
type Options struct {
	// APIKey is the TMDB v3 API key. Lookups fail with ErrNoAPIKey
	// when it is empty.
	APIKey string
	// BaseURL overrides the public endpoint, mainly for tests.
	BaseURL string
	// Cache, when set, replays previous responses within their TTL.
	Cache *fetchcache.Cache
	// Logger for request diagnostics; nil falls back to stderr.
	Logger *slog.Logger
}

// New creates a new TMDB client.
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
		apiKey:  opts.APIKey,
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

// doRequest executes a cached, rate-limited GET against the API. The
// cache key excludes the API key so cached entries survive key
// rotation.
func (c *Client) doRequest(ctx context.Context, rawURL, cacheKey string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	if c.cache != nil {
		if body, ok := c.cache.Get(cacheKey); ok {
			c.logger.Debug("tmdb cache hit", "key", cacheKey)
			return body, nil
		}
	}

	if err := c.limiter.Wait(ctx, "tmdb"); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", "haru-refresh/1.0")

	c.logger.Debug("tmdb request", "key", cacheKey)

	status, body, err := metadata.Get(ctx, c.http, rawURL, header, c.retry, c.logger)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		if c.cache != nil {
			if err := c.cache.Set(cacheKey, body); err != nil {
				c.logger.Warn("tmdb cache write failed", "key", cacheKey, "error", err)
			}
		}
		return body, nil
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
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
