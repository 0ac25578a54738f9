package http

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/swaggo/swag"
)

const readyTimeout = 5 * time.Second

// ReadyResponse carries one result per dependency, "ok" or the ping error
// @Description Readiness status with per-dependency results
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// handleHealth godoc
// @Summary      Liveness check
// @Description  Answers as long as the process serves HTTP
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings Postgres, the task queue and Redis when configured
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.checks))}
	for _, name := range slices.Sorted(maps.Keys(s.checks)) {
		err := s.checks[name].Ping(ctx)
		if err == nil {
			resp.Checks[name] = "ok"
			continue
		}
		s.logger.Warn("readiness check failed", "check", name, "error", err)
		resp.Checks[name] = err.Error()
		resp.Status = "unavailable"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Build version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleSwaggerDoc serves the OpenAPI document registered by the docs package
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}
