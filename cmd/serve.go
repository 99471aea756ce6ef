package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/giantswarm/deployctl/internal/instrumentation"
	"github.com/giantswarm/deployctl/internal/logging"
	"github.com/giantswarm/deployctl/internal/server"
	fleettools "github.com/giantswarm/deployctl/internal/tools/fleet"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 30 * time.Second

// serveOptions holds the serve command flags.
type serveOptions struct {
	transport    string
	httpAddr     string
	httpEndpoint string
	metricsAddr  string
	enableHSTS   bool
}

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the deployctl MCP server",
		Long: `Start a Model Context Protocol server exposing the fleet operations
as tools: listing deployments across clusters, pod details, restart, start,
stop and ConfigMap updates.

Supported transports:
  - stdio: standard input/output (default)
  - streamable-http: HTTP transport, also serving /healthz, /readyz and
    /exports/{namespace}/{deployment}

When instrumentation is enabled (INSTRUMENTATION_ENABLED=true) and metrics
are exported to Prometheus, /metrics is served on --metrics-addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().StringVar(&opts.httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address, empty to disable")
	cmd.Flags().BoolVar(&opts.enableHSTS, "enable-hsts", false, "Send Strict-Transport-Security on export downloads behind a TLS proxy")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	switch opts.transport {
	case transportStdio, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}

	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	logger := logging.WithOperation(env.logger, "serve")

	// Listen for both SIGINT and SIGTERM.
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = cmd.Root().Version
	provider, err := instrumentation.NewProvider(ctx, instrumentationConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	if provider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			"metrics_exporter", instrumentationConfig.MetricsExporter,
			"tracing_exporter", instrumentationConfig.TracingExporter)
	}

	sc, err := server.NewServerContext(ctx,
		server.WithDispatcher(env.dispatcher(provider.Metrics())),
		server.WithLogger(env.logger),
		server.WithInstrumentationProvider(provider),
		server.WithVersion(cmd.Root().Version),
	)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := sc.Shutdown(context.Background()); err != nil {
			logger.Error("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer(sc.Name(), sc.Version(),
		mcpserver.WithToolCapabilities(true),
	)
	if err := fleettools.RegisterFleetTools(mcpSrv, sc); err != nil {
		return fmt.Errorf("failed to register fleet tools: %w", err)
	}

	cfg := sc.Config()
	logger.Info("starting MCP server",
		"transport", opts.transport,
		"read_only", cfg.ReadOnly,
		"dry_run", cfg.DryRun,
		"workers", cfg.Workers)

	switch opts.transport {
	case transportStreamableHTTP:
		return runStreamableHTTPServer(ctx, mcpSrv, sc, opts)
	default:
		return runStdioServer(ctx, mcpSrv)
	}
}
