package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]HealthCheck{
		"store":    s.checkStore(r),
		"config":   s.checkConfig(),
		"commands": s.checkCommands(),
	}

	overall := HealthStatusHealthy
	for _, c := range checks {
		switch c.Status {
		case HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overall == HealthStatusHealthy {
				overall = HealthStatusDegraded
			}
		}
	}

	status := http.StatusOK
	if overall == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, HealthCheckResponse{
		Status:        overall,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
		Uptime:        time.Since(s.startTime).Round(time.Second).String(),
		Checks:        checks,
		RequestID:     middleware.GetReqID(r.Context()),
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"alive":          true,
		"engine_version": EngineVersion,
		"uptime":         time.Since(s.startTime).String(),
	})
}

func (s *Server) checkStore(r *http.Request) HealthCheck {
	if s.stats == nil {
		return HealthCheck{Status: HealthStatusDegraded, Message: "store stats unavailable"}
	}
	start := time.Now()
	st, err := s.stats.Stats(r.Context())
	if err != nil {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: err.Error(), Duration: time.Since(start).String()}
	}
	return HealthCheck{
		Status:   HealthStatusHealthy,
		Message:  fmt.Sprintf("%s players, %s stored", humanize.Comma(st.Players), humanize.Bytes(uint64(st.Bytes))),
		Duration: time.Since(start).String(),
	}
}

func (s *Server) checkConfig() HealthCheck {
	if s.config == nil || s.config.Version() == 0 {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: "no config tables loaded"}
	}
	return HealthCheck{Status: HealthStatusHealthy, Message: fmt.Sprintf("tables version %d", s.config.Version())}
}

func (s *Server) checkCommands() HealthCheck {
	n := len(s.exec.Registry())
	if n == 0 {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: "no commands registered"}
	}
	return HealthCheck{Status: HealthStatusHealthy, Message: fmt.Sprintf("%d commands registered", n)}
}
