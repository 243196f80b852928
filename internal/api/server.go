// Package api provides the HTTP server and handlers for the addon.
//
// Two surfaces share one router: the Stremio addon protocol (manifest,
// catalog, meta) served as plain chi handlers because clients expect
// exact response shapes, and a small huma-based ops API under /api/v1
// for status inspection and catalog reloads.
package api

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/haruapp/haru-server/internal/catalog"
	"github.com/haruapp/haru-server/internal/config"
	"github.com/haruapp/haru-server/internal/http/response"
	"github.com/haruapp/haru-server/internal/manifest"
)

// Cache lifetimes for addon payloads. The catalog only changes when the
// refresh pipeline publishes a new build, so clients and CDNs may hold
// responses for a while.
const (
	manifestMaxAge = 1 * time.Hour
	catalogMaxAge  = 12 * time.Hour
	metaMaxAge     = 24 * time.Hour
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  *catalog.Store
	cfg    *config.Config
	router *chi.Mux
	api    huma.API
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	s := &Server{
		store:  store,
		cfg:    cfg,
		router: chi.NewRouter(),
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack. Stremio's web client
// fetches addons cross-origin, so CORS must allow any origin.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	if s.cfg.Server.RateLimitPerMin > 0 {
		limiter := NewRateLimiter(s.cfg.Server.RateLimitPerMin, time.Minute, s.cfg.Server.RateLimitPerMin)
		s.router.Use(RateLimitMiddleware(limiter, s.logger))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Landing page redirects to the configure page, matching what addon
	// clients expect when they strip /manifest.json off an install URL.
	s.router.Get("/", s.handleRoot)

	// Addon resource routes, served bare and under a user config prefix.
	s.addonRoutes(s.router)
	s.router.Route("/{userConfig}", func(r chi.Router) {
		s.addonRoutes(r)
		// Subrouters do not inherit the parent's NotFound handler.
		r.NotFound(s.handleNotFound)
	})

	// Ops API.
	humaConfig := huma.DefaultConfig("Haru Ops API", manifest.Version)
	humaConfig.DocsPath = "/api/v1/docs"
	humaConfig.OpenAPIPath = "/api/v1/openapi"
	humaConfig.SchemasPath = "/api/v1/schemas"
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()
	s.registerOpsRoutes()

	// The protocol's fixed 404 body for anything unrecognized.
	s.router.NotFound(s.handleNotFound)
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	response.NotFound(w, s.logger)
}

// addonRoutes mounts the Stremio resource endpoints on r. The same set
// is registered at the root and under /{userConfig}; handlers read the
// config segment themselves, so a missing param just means defaults.
func (s *Server) addonRoutes(r chi.Router) {
	r.Get("/manifest.json", s.handleManifest)
	r.Get("/catalog/{type}/{id}", s.handleCatalog)
	r.Get("/catalog/{type}/{id}/{extra}", s.handleCatalog)
	r.Get("/meta/{type}/{id}", s.handleMeta)
	r.Get("/configure", s.handleConfigure)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/configure", http.StatusFound)
}
