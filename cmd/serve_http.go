package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/deployctl/internal/instrumentation"
	"github.com/giantswarm/deployctl/internal/logging"
	"github.com/giantswarm/deployctl/internal/server"
	"github.com/giantswarm/deployctl/internal/server/middleware"
)

// newHTTPHandler mounts the MCP endpoint, the health probes and the export
// downloads on one mux. The health checker is returned so the caller can
// flip readiness during shutdown.
func newHTTPHandler(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts serveOptions) (http.Handler, *server.HealthChecker) {
	mux := http.NewServeMux()

	mcpHandler := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(opts.httpEndpoint),
	)
	mux.Handle(opts.httpEndpoint, mcpHandler)

	healthChecker := server.NewHealthChecker(sc)
	healthChecker.RegisterHealthEndpoints(mux)

	secure := middleware.SecurityHeaders(middleware.SecurityHeadersConfig{EnableHSTS: opts.enableHSTS})
	mux.Handle(server.ExportsPattern, secure(server.NewExportHandler(sc)))

	return middleware.HTTPMetrics(sc.InstrumentationProvider())(mux), healthChecker
}

// runStreamableHTTPServer runs the server with Streamable HTTP transport
func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts serveOptions) error {
	logger := logging.WithOperation(sc.Logger(), "http")
	handler, healthChecker := newHTTPHandler(mcpSrv, sc, opts)

	var metricsServer *server.MetricsServer
	provider := sc.InstrumentationProvider()
	if opts.metricsAddr != "" && provider.Enabled() && provider.PrometheusHandler() != nil {
		var err error
		metricsServer, err = startMetricsServer(sc, opts.metricsAddr, provider)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	httpServer := &http.Server{
		Addr:              opts.httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	logger.Info("streamable HTTP server starting",
		"addr", opts.httpAddr,
		"endpoint", opts.httpEndpoint,
		"health_endpoints", []string{"/healthz", "/readyz", "/healthz/detailed"},
		"exports", server.ExportsPattern)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		healthChecker.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("error shutting down metrics server", logging.Err(err))
			}
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// startMetricsServer serves /metrics on its own address, away from the
// MCP and export traffic.
func startMetricsServer(sc *server.ServerContext, addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, err
	}

	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sc.Logger().Error("metrics server error", logging.Err(err))
		}
	}()

	sc.Logger().Info("metrics server started", "addr", addr, "endpoint", "/metrics")
	return metricsServer, nil
}
