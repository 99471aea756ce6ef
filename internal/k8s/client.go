package k8s

import (
	"fmt"
	"log/slog"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/logging"
	"github.com/giantswarm/deployctl/internal/notice"
)

// ClientFactory builds an API client for a kubeconfig context.
type ClientFactory interface {
	ForContext(contextName string) (kubernetes.Interface, error)
}

// ClusterClient bundles the typed clients for one cluster with the
// namespace it operates in. It owns no cross-cluster state.
type ClusterClient struct {
	Target
	Clientset kubernetes.Interface
}

// NewClusterClient builds the client for target. Failures are client
// construction errors.
func NewClusterClient(factory ClientFactory, target Target) (*ClusterClient, error) {
	cs, err := factory.ForContext(target.Context)
	if err != nil {
		return nil, notice.Wrap(notice.KindClientConstruction, "build client", target.Context, err)
	}
	return &ClusterClient{Target: target, Clientset: cs}, nil
}

// KubeconfigClientFactory builds clientsets from the operator's kubeconfig.
// Clients are not cached: each call re-reads the kubeconfig.
type KubeconfigClientFactory struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewClientFactory creates a factory for cfg.
func NewClientFactory(cfg config.Config, logger *slog.Logger) *KubeconfigClientFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &KubeconfigClientFactory{cfg: cfg, logger: logger}
}

// RESTConfig returns the rest config for contextName with the configured
// rate limits, timeout and TLS settings applied.
func (f *KubeconfigClientFactory) RESTConfig(contextName string) (*rest.Config, error) {
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	if f.cfg.InsecureSkipTLSVerify {
		overrides.ClusterInfo.InsecureSkipTLSVerify = true
	}

	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(LoadingRules(f.cfg.KubeconfigPath), overrides)
	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create rest config for context %q: %w", contextName, err)
	}

	restConfig.QPS = f.cfg.QPS
	restConfig.Burst = f.cfg.Burst
	restConfig.Timeout = f.cfg.RequestTimeout
	restConfig.UserAgent = UserAgent

	return restConfig, nil
}

// ForContext implements ClientFactory.
func (f *KubeconfigClientFactory) ForContext(contextName string) (kubernetes.Interface, error) {
	restConfig, err := f.RESTConfig(contextName)
	if err != nil {
		return nil, err
	}

	cs, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset for context %q: %w", contextName, err)
	}

	f.logger.Debug("created cluster client",
		logging.Cluster(contextName),
		logging.Host(restConfig.Host))
	return cs, nil
}

// StaticClientFactory serves prebuilt clientsets keyed by context name.
// It is used when clients are constructed elsewhere, e.g. fakes in tests.
type StaticClientFactory map[string]kubernetes.Interface

// ForContext implements ClientFactory.
func (s StaticClientFactory) ForContext(contextName string) (kubernetes.Interface, error) {
	cs, ok := s[contextName]
	if !ok {
		return nil, fmt.Errorf("context %q not found", contextName)
	}
	return cs, nil
}
