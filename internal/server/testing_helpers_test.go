package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/dispatch"
	"github.com/giantswarm/deployctl/internal/instrumentation"
	"github.com/giantswarm/deployctl/internal/k8s"
)

type fixedResolver []string

func (r fixedResolver) Targets() ([]k8s.Target, error) {
	if len(r) == 0 {
		return nil, errors.New("no cluster contexts found in kubeconfig")
	}
	out := make([]k8s.Target, len(r))
	for i, c := range r {
		out[i] = k8s.Target{Context: c, Namespace: c}
	}
	return out, nil
}

func (r fixedResolver) Target(name string) (k8s.Target, error) {
	return k8s.Target{Context: name, Namespace: name}, nil
}

func newTestServerContext(t *testing.T, cfg config.Config, contexts ...string) *ServerContext {
	t.Helper()
	d := dispatch.NewDispatcher(cfg, fixedResolver(contexts), k8s.StaticClientFactory{}, nil, nil)
	sc, err := NewServerContext(context.Background(), WithDispatcher(d), WithVersion("1.2.3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown(context.Background()) })
	return sc
}

func newPrometheusProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		ServiceName:     "deployctl-test",
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}
