package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/listenupapp/watcherd/internal/http/response"
	"github.com/listenupapp/watcherd/internal/supervisor"
)

// HealthResponse summarizes whether any job is still consuming events.
type HealthResponse struct {
	Status  string `json:"status"`
	Jobs    int    `json:"jobs"`
	Running int    `json:"running"`
}

// StatusResponse lists every installed job.
type StatusResponse struct {
	Jobs []supervisor.Status `json:"jobs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	statuses := s.jobs.Statuses()
	health := HealthResponse{
		Status:  "healthy",
		Jobs:    len(statuses),
		Running: s.jobs.Running(),
	}

	switch {
	case health.Running == 0:
		health.Status = "unhealthy"
		response.ServiceUnavailable(w, health, s.logger)
		return
	case health.Running < health.Jobs:
		health.Status = "degraded"
	}
	response.Success(w, health, s.logger)
}

func (s *Server) handleListStatus(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, StatusResponse{Jobs: s.jobs.Statuses()}, s.logger)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "job")

	st, ok := s.jobs.Status(name)
	if !ok {
		response.NotFound(w, fmt.Sprintf("job %q not found", name), s.logger)
		return
	}
	response.Success(w, st, s.logger)
}
