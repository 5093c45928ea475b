package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthStatus is the overall readiness verdict.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus is the state of one backing service.
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms"`
}

// handleHealth is a liveness probe: the process is up and serving.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Health{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   s.cfg.Version,
	})
}

// handleReady reports 200 only when every backing service answers.
// Failure details are logged; the response only names the component.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	results := s.store.Health(ctx)
	latency := float64(time.Since(start).Microseconds()) / 1000

	health := Health{
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now().UTC(),
		Version:    s.cfg.Version,
		Components: make(map[string]ComponentHealth, len(results)),
	}
	for name, check := range results {
		c := ComponentHealth{Status: ComponentStatusUp, Message: check.Detail, LatencyMs: latency}
		if check.Err != nil {
			c.Status = ComponentStatusDown
			c.Message = name + " unavailable"
			if check.Detail != "" {
				c.Message += " (" + check.Detail + ")"
			}
			health.Status = HealthStatusUnhealthy
			s.logger(r).Warn("readiness check failed",
				zap.String("component", name),
				zap.String("detail", check.Detail),
				zap.Error(check.Err),
			)
		}
		health.Components[name] = c
	}

	status := http.StatusOK
	if health.Status != HealthStatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
