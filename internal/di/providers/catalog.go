package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/haruapp/haru-server/internal/catalog"
	"github.com/haruapp/haru-server/internal/config"
	"github.com/haruapp/haru-server/internal/logger"
	"github.com/haruapp/haru-server/internal/watcher"
)

// ProvideCatalogStore provides the in-memory catalog store, loaded from
// the configured catalog file.
func ProvideCatalogStore(i do.Injector) (*catalog.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	store := catalog.New(catalog.Options{
		CatalogPath: cfg.Database.CatalogPath,
		FiltersPath: cfg.Database.FiltersPath,
		Logger:      log.Logger,
	})

	// A missing catalog is not fatal. The store serves an empty view and
	// the watcher swaps the real one in once the refresh pipeline writes it.
	if err := store.Load(context.Background()); err != nil {
		log.Warn("Initial catalog load failed, serving empty catalog",
			"path", cfg.Database.CatalogPath,
			"error", err,
		)
	}

	return store, nil
}

// CatalogWatcherHandle wraps the catalog file watcher with shutdown capability.
type CatalogWatcherHandle struct {
	*watcher.Watcher
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *CatalogWatcherHandle) Shutdown() error {
	if h.started && h.Watcher != nil {
		h.Stop()
	}
	return nil
}

// ProvideCatalogWatcher provides the watcher that reloads the store when
// the refresh pipeline replaces the catalog files.
func ProvideCatalogWatcher(i do.Injector) (*CatalogWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*catalog.Store](i)

	if !cfg.Database.Watch {
		log.Info("Catalog watch disabled by configuration")
		return &CatalogWatcherHandle{Watcher: nil, started: false}, nil
	}

	w, err := watcher.New(store.Load, watcher.Options{
		Paths:  []string{cfg.Database.CatalogPath, cfg.Database.FiltersPath},
		Logger: log.Logger,
	})
	if err != nil {
		// Non-fatal: the catalog directory may not exist until the first
		// pipeline run. The server still works, reloads just need a restart.
		log.Warn("Catalog watch unavailable", "error", err)
		return &CatalogWatcherHandle{Watcher: nil, started: false}, nil
	}

	w.Start(context.Background())
	log.Info("Catalog watch started",
		"catalog", cfg.Database.CatalogPath,
		"filters", cfg.Database.FiltersPath,
	)

	return &CatalogWatcherHandle{Watcher: w, started: true}, nil
}
