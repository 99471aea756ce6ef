package server

import (
	"log/slog"

	"github.com/giantswarm/deployctl/internal/dispatch"
	"github.com/giantswarm/deployctl/internal/instrumentation"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithDispatcher sets the dispatcher.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(sc *ServerContext) error {
		if d == nil {
			return ErrMissingDispatcher
		}
		sc.dispatcher = d
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry provider.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.provider = provider
		return nil
	}
}

// WithServerName sets the server name.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if name != "" {
			sc.name = name
		}
		return nil
	}
}

// WithVersion sets the reported build version.
func WithVersion(version string) Option {
	return func(sc *ServerContext) error {
		sc.version = version
		return nil
	}
}
