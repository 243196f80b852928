// Package di provides dependency injection configuration for the Haru server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/haruapp/haru-server/internal/catalog"
	"github.com/haruapp/haru-server/internal/config"
	"github.com/haruapp/haru-server/internal/di/providers"
	"github.com/haruapp/haru-server/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Catalog layer
	do.Provide(injector, providers.ProvideCatalogStore)
	do.Provide(injector, providers.ProvideCatalogWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services. Invocation order
// matters: the container shuts services down in reverse, so the HTTP server
// drains before the watcher and store go away.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*catalog.Store](injector)
	_ = do.MustInvoke[*providers.CatalogWatcherHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	return nil
}
