package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/k8s"
)

const kubeconfigTemplate = `apiVersion: v1
kind: Config
clusters:
- name: c
  cluster:
    server: https://127.0.0.1:6443
users:
- name: u
  user:
    token: t
contexts:
%s
current-context: uat1
`

// writeKubeconfig writes a kubeconfig with one context per name and returns
// its path.
func writeKubeconfig(t *testing.T, contexts ...string) string {
	t.Helper()
	var entries string
	for _, c := range contexts {
		entries += "- name: " + c + "\n  context:\n    cluster: c\n    user: u\n"
	}
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(kubeconfigTemplate, entries)), 0o600))
	return path
}

// useFakeClusters routes every client built by the commands to fake
// clientsets seeded with objects, keyed by context name.
func useFakeClusters(t *testing.T, clusters map[string][]runtime.Object) k8s.StaticClientFactory {
	t.Helper()
	factory := k8s.StaticClientFactory{}
	for name, objects := range clusters {
		factory[name] = fake.NewSimpleClientset(objects...)
	}

	original := newClientFactory
	newClientFactory = func(config.Config, *slog.Logger) k8s.ClientFactory {
		return factory
	}
	previousLogger := slog.Default()
	t.Cleanup(func() {
		newClientFactory = original
		slog.SetDefault(previousLogger)
	})
	return factory
}

// runCLI executes a fresh root command and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
