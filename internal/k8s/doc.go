// Package k8s resolves the operator's kubeconfig into cluster targets and
// builds per-context API clients.
//
// Cluster contexts are re-read from the kubeconfig on every call, so edits to
// the file take effect without restarting the process. Each context is
// mapped to a namespace by the configured NamespaceRule.
//
//	resolver := k8s.NewContextResolver(cfg, logger)
//	targets, err := resolver.Targets()
//	...
//	client, err := k8s.NewClusterClient(k8s.NewClientFactory(cfg, logger), targets[0])
package k8s
