package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthChecker provides health check endpoints for Kubernetes probes.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
}

// NewHealthChecker creates a HealthChecker. The server starts ready.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the JSON body of the health endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}

// DetailedHealthResponse adds fleet and safety settings to HealthResponse.
type DetailedHealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version,omitempty"`
	Uptime          string `json:"uptime"`
	Contexts        int    `json:"contexts"`
	ReadOnly        bool   `json:"read_only"`
	DryRun          bool   `json:"dry_run"`
	Instrumentation bool   `json:"instrumentation"`
}

// LivenessHandler serves /healthz. If the process can answer, it is alive.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{Status: "ok"}
		if h.serverContext != nil {
			response.Version = h.serverContext.Version()
		}
		writeJSON(w, http.StatusOK, response)
	})
}

// ReadinessHandler serves /readyz. The server is ready when it is not
// shutting down and the kubeconfig yields at least one context.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string)
		allOk := true

		if h.ready.Load() {
			checks["ready"] = "ok"
		} else {
			checks["ready"] = "not ready"
			allOk = false
		}

		if h.serverContext != nil {
			if h.serverContext.IsShutdown() {
				checks["shutdown"] = "shutting down"
				allOk = false
			} else {
				checks["shutdown"] = "ok"
			}

			targets, err := h.serverContext.Dispatcher().Contexts(r.Context())
			if err != nil {
				checks["kubeconfig"] = err.Error()
				allOk = false
			} else {
				checks["kubeconfig"] = fmt.Sprintf("ok (%d contexts)", len(targets))
			}

			if provider := h.serverContext.InstrumentationProvider(); provider != nil {
				if provider.Enabled() {
					checks["instrumentation"] = "ok"
				} else {
					checks["instrumentation"] = "disabled"
				}
			}
		}

		response := HealthResponse{Status: "ok", Checks: checks}
		status := http.StatusOK
		if !allOk {
			response.Status = "not ready"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	})
}

// DetailedHealthHandler serves /healthz/detailed.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := DetailedHealthResponse{
			Status: "ok",
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}

		status := http.StatusOK
		if sc := h.serverContext; sc != nil {
			cfg := sc.Config()
			response.Version = sc.Version()
			response.ReadOnly = cfg.ReadOnly
			response.DryRun = cfg.DryRun
			if provider := sc.InstrumentationProvider(); provider != nil {
				response.Instrumentation = provider.Enabled()
			}
			if targets, err := sc.Dispatcher().Contexts(r.Context()); err == nil {
				response.Contexts = len(targets)
			}
			if sc.IsShutdown() {
				response.Status = "shutting down"
				status = http.StatusServiceUnavailable
			}
		}
		if !h.ready.Load() {
			response.Status = "not ready"
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, response)
	})
}

// RegisterHealthEndpoints registers the health endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
