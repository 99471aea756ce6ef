package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/dispatch"
	"github.com/giantswarm/deployctl/internal/instrumentation"
)

// Errors returned by NewServerContext and its options.
var (
	ErrMissingDispatcher = errors.New("dispatcher is required")
	ErrMissingLogger     = errors.New("logger is required")
	ErrServerShutdown    = errors.New("server is shutting down")
)

// DefaultServerName is the name the MCP server announces.
const DefaultServerName = "deployctl"

// ServerContext carries the dependencies shared by every request handler.
type ServerContext struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	provider   *instrumentation.Provider

	name    string
	version string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a ServerContext. A dispatcher is required.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    serverCtx,
		cancel: cancel,
		logger: slog.Default(),
		name:   DefaultServerName,
	}

	for _, opt := range opts {
		if err := opt(sc); err != nil {
			cancel()
			return nil, err
		}
	}

	if sc.dispatcher == nil {
		cancel()
		return nil, ErrMissingDispatcher
	}
	return sc, nil
}

// Context is cancelled when the server shuts down.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Dispatcher returns the action dispatcher.
func (sc *ServerContext) Dispatcher() *dispatch.Dispatcher {
	return sc.dispatcher
}

// Config returns the process configuration.
func (sc *ServerContext) Config() config.Config {
	return sc.dispatcher.Config()
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// InstrumentationProvider returns the provider, or nil when none was set.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	return sc.provider
}

// Name returns the server name.
func (sc *ServerContext) Name() string {
	return sc.name
}

// Version returns the build version.
func (sc *ServerContext) Version() string {
	return sc.version
}

// IsShutdown reports whether Shutdown has been called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and flushes instrumentation. It is
// safe to call more than once.
func (sc *ServerContext) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	sc.mu.Unlock()

	sc.cancel()

	if sc.provider != nil {
		if err := sc.provider.Shutdown(ctx); err != nil {
			sc.logger.Warn("failed to shut down instrumentation", slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}
