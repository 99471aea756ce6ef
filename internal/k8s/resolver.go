package k8s

import (
	"errors"
	"log/slog"
	"os"
	"slices"
	"sort"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"sigs.k8s.io/yaml"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/notice"
)

// Target is one cluster context together with the namespace it is operated in.
type Target struct {
	Context   string `json:"context"`
	Namespace string `json:"namespace"`
}

// ContextResolver enumerates the cluster contexts of the operator's
// kubeconfig. It holds no state between calls.
type ContextResolver struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewContextResolver creates a resolver for cfg.
func NewContextResolver(cfg config.Config, logger *slog.Logger) *ContextResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextResolver{cfg: cfg, logger: logger}
}

// LoadingRules returns the kubeconfig loading rules for an optional
// explicit path.
func LoadingRules(kubeconfigPath string) *clientcmd.ClientConfigLoadingRules {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	return rules
}

// Contexts returns the context names in kubeconfig order. It fails with a
// configuration error when the kubeconfig cannot be loaded or yields no
// contexts.
func (r *ContextResolver) Contexts() ([]string, error) {
	targets, err := r.Targets()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Context
	}
	return names, nil
}

// Targets returns every usable context with its namespace, in kubeconfig order.
func (r *ContextResolver) Targets() ([]Target, error) {
	rules := LoadingRules(r.cfg.KubeconfigPath)
	raw, err := rules.Load()
	if err != nil {
		return nil, notice.Wrap(notice.KindConfiguration, "load kubeconfig", "", err)
	}

	names := orderedContextNames(rules.GetLoadingPrecedence(), raw, r.logger)
	if len(r.cfg.Contexts) > 0 {
		names = slices.DeleteFunc(names, func(name string) bool {
			return !slices.Contains(r.cfg.Contexts, name)
		})
	}

	if len(names) == 0 {
		return nil, notice.Errorf(notice.KindConfiguration, "list contexts", "", "no cluster contexts found in kubeconfig")
	}

	targets := make([]Target, len(names))
	for i, name := range names {
		targets[i] = Target{Context: name, Namespace: namespaceFor(r.cfg, raw, name)}
	}
	return targets, nil
}

// Target resolves a single context. A context outside a non-empty
// cfg.Contexts allow-list is a configuration error. Contexts missing from the
// kubeconfig are not rejected here; building a client for them fails instead.
func (r *ContextResolver) Target(contextName string) (Target, error) {
	if len(r.cfg.Contexts) > 0 && !slices.Contains(r.cfg.Contexts, contextName) {
		return Target{}, notice.Errorf(notice.KindConfiguration, "resolve context", contextName,
			"context %q is not in the configured contexts", contextName)
	}

	raw, err := LoadingRules(r.cfg.KubeconfigPath).Load()
	if err != nil {
		return Target{}, notice.Wrap(notice.KindConfiguration, "load kubeconfig", contextName, err)
	}
	return Target{Context: contextName, Namespace: namespaceFor(r.cfg, raw, contextName)}, nil
}

func namespaceFor(cfg config.Config, raw *clientcmdapi.Config, contextName string) string {
	switch cfg.NamespaceRule {
	case config.NamespaceFixed:
		return cfg.FixedNamespace
	case config.NamespaceFromKubeconfig:
		if kctx, ok := raw.Contexts[contextName]; ok && kctx.Namespace != "" {
			return kctx.Namespace
		}
	}
	return contextName
}

// kubeconfigContexts is the subset of a kubeconfig file needed to recover
// the declaration order of its contexts. The merged clientcmd config keeps
// contexts in a map and loses that order.
type kubeconfigContexts struct {
	Contexts []struct {
		Name string `json:"name"`
	} `json:"contexts"`
}

// orderedContextNames returns the contexts of raw in the order they are
// declared across files. Contexts that cannot be placed are appended sorted.
func orderedContextNames(files []string, raw *clientcmdapi.Config, logger *slog.Logger) []string {
	seen := make(map[string]bool, len(raw.Contexts))
	names := make([]string, 0, len(raw.Contexts))

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Debug("could not read kubeconfig for context order", slog.String("file", file), slog.String("error", err.Error()))
			}
			continue
		}

		var kc kubeconfigContexts
		if err := yaml.Unmarshal(data, &kc); err != nil {
			logger.Debug("could not parse kubeconfig for context order", slog.String("file", file), slog.String("error", err.Error()))
			continue
		}

		for _, c := range kc.Contexts {
			if _, ok := raw.Contexts[c.Name]; !ok || seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}

	var rest []string
	for name := range raw.Contexts {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	return append(names, rest...)
}
