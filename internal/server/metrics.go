package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/giantswarm/deployctl/internal/instrumentation"
)

// DefaultMetricsAddr is the listen address of the metrics server.
const DefaultMetricsAddr = ":9090"

// MetricsServerConfig configures a MetricsServer.
type MetricsServerConfig struct {
	Addr                    string
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves /metrics on its own listener, away from tool traffic.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics server. The provider must use the
// prometheus exporter for /metrics to return data.
func NewMetricsServer(cfg MetricsServerConfig) (*MetricsServer, error) {
	if cfg.InstrumentationProvider == nil {
		return nil, errors.New("instrumentation provider is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultMetricsAddr
	}

	handler := cfg.InstrumentationProvider.PrometheusHandler()
	if handler == nil {
		return nil, errors.New("instrumentation provider does not export prometheus metrics")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	return &MetricsServer{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Addr returns the listen address.
func (m *MetricsServer) Addr() string {
	return m.server.Addr
}

// Handler returns the HTTP handler.
func (m *MetricsServer) Handler() http.Handler {
	return m.server.Handler
}

// Start blocks serving until the server is shut down.
func (m *MetricsServer) Start() error {
	return m.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
