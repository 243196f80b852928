package api

import (
	"net/http"

	"github.com/haruapp/haru-server/internal/http/response"
)

// HealthResponse contains health check data.
type HealthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	TotalAnime int    `json:"totalAnime"`
	BuildDate  string `json:"buildDate"`
}

// handleHealthCheck reports process and catalog health. The endpoint
// returns 200 even while degraded; the body carries the state so a
// half-broken deployment still answers load balancer probes.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:     "healthy",
		Database:   "loaded",
		TotalAnime: s.store.Len(),
		BuildDate:  s.store.BuildInfo().BuildDate,
	}
	if !s.store.Ready() {
		resp.Status = "degraded"
		resp.Database = "unavailable"
	}

	response.JSON(w, http.StatusOK, resp, s.logger)
}
