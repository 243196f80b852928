package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/haruapp/haru-server/internal/domain"
	domainerrors "github.com/haruapp/haru-server/internal/errors"
)

func (s *Server) registerOpsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Catalog status",
		Description: "Returns readiness and build metadata for the loaded catalog",
		Tags:        []string{"Ops"},
	}, s.handleGetStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFacets",
		Method:      http.MethodGet,
		Path:        "/api/v1/facets",
		Summary:     "Facet options",
		Description: "Returns the filter options offered in the manifest, with counts",
		Tags:        []string{"Ops"},
	}, s.handleGetFacets)

	huma.Register(s.api, huma.Operation{
		OperationID: "reloadCatalog",
		Method:      http.MethodPost,
		Path:        "/api/v1/reload",
		Summary:     "Reload catalog",
		Description: "Re-reads the catalog file and swaps it in atomically",
		Tags:        []string{"Ops"},
	}, s.handleReloadCatalog)
}

// StatusResponse contains catalog status data in API responses.
type StatusResponse struct {
	Ready      bool      `json:"ready" doc:"Whether a catalog is loaded and serving"`
	TotalAnime int       `json:"totalAnime" doc:"Number of records in the catalog"`
	Series     int       `json:"series" doc:"Records served in the series catalogs"`
	Movies     int       `json:"movies" doc:"Records served in the movie catalog"`
	BuildDate  string    `json:"buildDate,omitempty" doc:"When the catalog file was built"`
	Version    string    `json:"version,omitempty" doc:"Catalog build version"`
	Source     string    `json:"source,omitempty" doc:"Primary data source of the build"`
	LoadedAt   time.Time `json:"loadedAt,omitzero" doc:"When this process loaded the catalog"`
}

// StatusOutput wraps the status response for Huma.
type StatusOutput struct {
	Body StatusResponse
}

func (s *Server) handleGetStatus(_ context.Context, _ *struct{}) (*StatusOutput, error) {
	return &StatusOutput{Body: s.statusResponse()}, nil
}

func (s *Server) statusResponse() StatusResponse {
	info := s.store.BuildInfo()
	return StatusResponse{
		Ready:      s.store.Ready(),
		TotalAnime: info.Stats.Total,
		Series:     info.Stats.Series,
		Movies:     info.Stats.Movies,
		BuildDate:  info.BuildDate,
		Version:    info.Version,
		Source:     info.Source,
		LoadedAt:   info.LoadedAt,
	}
}

// FacetsOutput wraps the facet options for Huma.
type FacetsOutput struct {
	Body domain.FilterOptions
}

func (s *Server) handleGetFacets(_ context.Context, _ *struct{}) (*FacetsOutput, error) {
	return &FacetsOutput{Body: s.store.Filters()}, nil
}

func (s *Server) handleReloadCatalog(ctx context.Context, _ *struct{}) (*StatusOutput, error) {
	if err := s.store.Load(ctx); err != nil {
		s.logger.Error("Catalog reload failed", "error", err)
		return nil, domainerrors.Unavailable("catalog reload failed").WithCause(err)
	}

	s.logger.Info("Catalog reloaded", "records", s.store.Len())
	return &StatusOutput{Body: s.statusResponse()}, nil
}
