// Package fribb loads the community-maintained anime-lists dataset,
// which links each title's ids across Kitsu, MyAnimeList, AniList,
// AniDB, IMDB, TMDB, and TVDB. The pipeline uses it to hop from the
// Kitsu catalog to every other source.
package fribb

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/haruapp/haru-server/internal/fetchcache"
	"github.com/haruapp/haru-server/internal/metadata"
)

const (
	defaultListURL = "https://raw.githubusercontent.com/Fribb/anime-lists/master/anime-list-full.json"

	// The full list is a double-digit-megabyte download.
	defaultTimeout = 2 * time.Minute
)

// Client fetches the mapping list. The source is a static file on
// GitHub, so there is no rate limiter; the fetch cache keeps reruns
// from re-downloading it.
type Client struct {
	http    *http.Client
	listURL string
	cache   *fetchcache.Cache
	retry   metadata.RetryOptions
	logger  *slog.Logger
}

// Options configures a Client.
type Options struct {
	// ListURL overrides the published list location, mainly for tests.
	ListURL string
	// Cache, when set, replays a previous download within its TTL.
	Cache *fetchcache.Cache
	// Logger for request diagnostics; nil falls back to stderr.
	Logger *slog.Logger
}

// New creates a new mapping list client.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	listURL := opts.ListURL
	if listURL == "" {
		listURL = defaultListURL
	}

	return &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		listURL: listURL,
		cache:   opts.Cache,
		retry:   metadata.DefaultRetry,
		logger:  logger,
	}
}

// Fetch downloads and indexes the full mapping list.
func (c *Client) Fetch(ctx context.Context) (*List, error) {
	body, err := c.download(ctx)
	if err != nil {
		return nil, err
	}

	var mappings []Mapping
	if err := json.Unmarshal(body, &mappings); err != nil {
		return nil, fmt.Errorf("fribb: parse mapping list: %w", err)
	}

	c.logger.Debug("fribb mapping list loaded", "entries", len(mappings))
	return NewList(mappings), nil
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(c.listURL); ok {
			c.logger.Debug("fribb cache hit", "url", c.listURL)
			return body, nil
		}
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", "haru-refresh/1.0")

	c.logger.Debug("fribb download", "url", c.listURL)

	status, body, err := metadata.Get(ctx, c.http, c.listURL, header, c.retry, c.logger)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fribb: unexpected status %d: %s", status, metadata.Truncate(body))
	}

	if c.cache != nil {
		if err := c.cache.Set(c.listURL, body); err != nil {
			c.logger.Warn("fribb cache write failed", "url", c.listURL, "error", err)
		}
	}
	return body, nil
}
