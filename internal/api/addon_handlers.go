package api

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/haruapp/haru-server/internal/catalog"
	"github.com/haruapp/haru-server/internal/domain"
	"github.com/haruapp/haru-server/internal/http/response"
	"github.com/haruapp/haru-server/internal/manifest"
)

// userConfig parses the optional config path segment of the request.
// Requests without the segment get the defaults.
func userConfig(r *http.Request) manifest.Config {
	return manifest.ParseConfig(pathSegment(r, "userConfig"))
}

// pathSegment returns a URL parameter with percent-escapes resolved.
// chi hands the segment over raw when the request path needed escaping.
func pathSegment(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}

// handleManifest serves the addon manifest, with facet options rendered
// from whatever catalog is currently loaded. Before the first successful
// load the manifest still serves, just with empty option lists.
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	m := manifest.Build(manifest.Options{
		ID:          s.cfg.Addon.ID,
		Name:        s.cfg.Addon.Name,
		Description: s.cfg.Addon.Description,
		Filters:     s.store.Filters(),
		Config:      userConfig(r),
	})

	response.JSONCached(w, manifestMaxAge, m, s.logger)
}

// handleCatalog serves one page of a catalog. Anything unrecognized in
// the request degrades to an empty page rather than an error: clients
// concatenate pages and treat non-200s as addon failures.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cfg := userConfig(r)
	contentType := chi.URLParam(r, "type")
	id := strings.TrimSuffix(pathSegment(r, "id"), ".json")
	extra := parseExtra(strings.TrimSuffix(chi.URLParam(r, "extra"), ".json"))

	var records []domain.AnimeRecord
	if extra.Search != "" {
		records = catalog.Paginate(s.store.Search(extra.Search, contentType), extra.Skip)
	} else {
		records = s.store.Page(catalog.Request{
			Catalog:            catalog.ID(id),
			Type:               contentType,
			Genre:              extra.Genre,
			Skip:               extra.Skip,
			ExcludeLongRunning: cfg.ExcludeLongRunning,
		})
	}

	response.JSONCached(w, catalogMaxAge, CatalogResponse{Metas: metasFromRecords(records)}, s.logger)
}

// handleMeta serves the full meta object for one id. Unknown ids return
// 200 with a null meta so clients fall through to their next addon
// instead of surfacing an error.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(pathSegment(r, "id"), ".json")

	record, ok := s.store.Resolve(id)
	if !ok {
		response.JSON(w, http.StatusOK, MetaResponse{}, s.logger)
		return
	}

	meta := metaFromRecord(record)
	response.JSONCached(w, metaMaxAge, MetaResponse{Meta: &meta}, s.logger)
}

// handleConfigure serves a minimal install page with one manifest link
// per flag combination. The page is deliberately plain HTML; the real
// configuration lives in the URL.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	base := s.publicBaseURL(r)

	var b strings.Builder
	fmt.Fprintf(&b, "<!doctype html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n", html.EscapeString(s.cfg.Addon.Name))
	fmt.Fprintf(&b, "<h1>%s</h1>\n<p>%s</p>\n", html.EscapeString(s.cfg.Addon.Name), html.EscapeString(s.cfg.Addon.Description))
	b.WriteString("<ul>\n")
	for _, v := range configVariants() {
		manifestURL := base + "/manifest.json"
		if seg := v.cfg.Segment(); seg != "" {
			manifestURL = base + "/" + seg + "/manifest.json"
		}
		stremioURL := "stremio://" + strings.TrimPrefix(strings.TrimPrefix(manifestURL, "https://"), "http://")
		fmt.Fprintf(&b, "<li><a href=%q>%s</a> (<a href=%q>copy URL</a>)</li>\n",
			stremioURL, html.EscapeString(v.label), manifestURL)
	}
	b.WriteString("</ul>\n</body>\n</html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

type configVariant struct {
	label string
	cfg   manifest.Config
}

// configVariants lists the install links shown on the configure page,
// defaults first.
func configVariants() []configVariant {
	return []configVariant{
		{"Install (default)", manifest.DefaultConfig()},
		{"Install without long-running series filter", manifest.Config{ExcludeLongRunning: false, ShowCounts: true}},
		{"Install without counts in genre lists", manifest.Config{ExcludeLongRunning: true, ShowCounts: false}},
		{"Install with both off", manifest.Config{}},
	}
}

// publicBaseURL resolves the externally visible base URL: the configured
// public URL when set, otherwise reconstructed from the request.
func (s *Server) publicBaseURL(r *http.Request) string {
	if u := s.cfg.Server.PublicURL; u != "" {
		return strings.TrimSuffix(u, "/")
	}

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
