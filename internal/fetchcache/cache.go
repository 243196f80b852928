// Package fetchcache provides a disk-backed response cache for the
// enrichment pipelines. Upstream APIs meter requests aggressively, so
// a rerun after a crash or a 429 streak should replay yesterday's
// responses instead of re-spending quota.
package fetchcache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// DefaultTTL is how long a cached response stays valid. Upstream anime
// metadata changes slowly; a day-old answer is fine for a pipeline run.
const DefaultTTL = 24 * time.Hour

// Cache is a URL-keyed byte cache with per-entry TTL.
// Thread safety: all methods are safe for concurrent use.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Options configures a Cache.
type Options struct {
	// Path is the directory holding the badger database.
	Path string
	// TTL overrides DefaultTTL when positive.
	TTL time.Duration
	// Logger for cache diagnostics; nil falls back to stderr.
	Logger *slog.Logger
}

// Open opens (or creates) the cache directory.
func Open(opts Options) (*Cache, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	badgerOpts := badger.DefaultOptions(opts.Path)
	badgerOpts.Logger = nil // Disable Badger's internal logging
	badgerOpts.CompactL0OnClose = true

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open fetch cache: %w", err)
	}

	return &Cache{db: db, ttl: ttl, logger: logger}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached body for a key. Expired and absent entries
// both report a miss.
func (c *Cache) Get(key string) ([]byte, bool) {
	var body []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("fetch cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return body, true
}

// Set stores a body under a key for the cache's TTL.
func (c *Cache) Set(key string, body []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), body).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	return nil
}

// Len counts live entries. Used by inspection tooling, not the
// pipelines themselves.
func (c *Cache) Len() (int, error) {
	count := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}
