package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🏥 Ops surface: health, readiness, metrics
// =============================================================================

// HealthCheck probes one dependency for the readiness endpoint.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// PingCheck adapts a ping function into a HealthCheck. Used for the
// Redis and database probes.
type PingCheck struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingCheck wraps a ping function under a check name.
func NewPingCheck(name string, ping func(ctx context.Context) error) *PingCheck {
	return &PingCheck{name: name, ping: ping}
}

func (c *PingCheck) Name() string { return c.name }

func (c *PingCheck) Check(ctx context.Context) error { return c.ping(ctx) }

// HealthStatus is the JSON body of the health endpoints.
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one dependency probe outcome.
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// OpsHandler serves the operational endpoints: /health and /healthz for
// liveness, /readyz for readiness with dependency probes, /metrics for
// the Prometheus registry. No domain routes live here.
type OpsHandler struct {
	version string
	metrics http.Handler
	logger  *zap.Logger
	checks  []HealthCheck
	mu      sync.RWMutex
}

// NewOpsHandler creates the ops surface. metrics may be nil when no
// collector is wired; the /metrics route then answers 404.
func NewOpsHandler(version string, metrics http.Handler, logger *zap.Logger) *OpsHandler {
	return &OpsHandler{
		version: version,
		metrics: metrics,
		logger:  logger.With(zap.String("component", "ops")),
		checks:  make([]HealthCheck, 0),
	}
}

// RegisterCheck adds a readiness probe.
func (h *OpsHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// Routes builds the ops mux.
func (h *OpsHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReady)
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics)
	}
	return mux
}

// =============================================================================
// 🎯 HTTP handlers
// =============================================================================

// handleHealth answers the liveness probe: the process is up.
func (h *OpsHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   h.version,
	})
}

// handleReady answers the readiness probe: every registered dependency
// check must pass within the probe deadline.
func (h *OpsHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   h.version,
		Checks:    make(map[string]CheckResult),
	}

	healthy := true
	for _, check := range checks {
		start := time.Now()
		err := check.Check(ctx)
		latency := time.Since(start)

		result := CheckResult{
			Status:  "pass",
			Latency: latency.String(),
		}
		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			healthy = false

			h.logger.Warn("readiness check failed",
				zap.String("check", check.Name()),
				zap.Error(err),
				zap.Duration("latency", latency),
			)
		}
		status.Checks[check.Name()] = result
	}

	code := http.StatusOK
	if !healthy {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	// Encoding errors past WriteHeader cannot be reported to the client.
	_ = json.NewEncoder(w).Encode(data)
}
