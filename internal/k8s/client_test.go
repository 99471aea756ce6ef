package k8s

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/notice"
)

// fleetKubeconfig declares its contexts out of alphabetical order so the
// tests can tell file order from map order.
const fleetKubeconfig = `
apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://uat.example.com
  name: uat
- cluster:
    server: https://prod.example.com
    certificate-authority-data: ZHVtbXk=
  name: prod
contexts:
- context:
    cluster: uat
    user: ops
  name: uat2
- context:
    cluster: prod
    user: ops
    namespace: shop
  name: prod-eu
- context:
    cluster: uat
    user: ops
  name: uat1
current-context: uat1
users:
- name: ops
  user:
    token: test-token
`

func writeKubeconfig(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(kubeconfig string) config.Config {
	cfg := config.Default()
	cfg.KubeconfigPath = kubeconfig
	return cfg
}

func TestContextResolver_KeepsKubeconfigOrder(t *testing.T) {
	path := writeKubeconfig(t, t.TempDir(), "config", fleetKubeconfig)

	names, err := NewContextResolver(testConfig(path), nil).Contexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"uat2", "prod-eu", "uat1"}, names)
}

func TestContextResolver_MergesKubeconfigFiles(t *testing.T) {
	dir := t.TempDir()
	first := writeKubeconfig(t, dir, "a", fleetKubeconfig)
	second := writeKubeconfig(t, dir, "b", `
apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://dev.example.com
  name: dev
contexts:
- context:
    cluster: dev
    user: ops
  name: dev1
- context:
    cluster: dev
    user: ops
  name: uat1
users:
- name: ops
  user:
    token: other
`)
	t.Setenv("KUBECONFIG", first+string(os.PathListSeparator)+second)

	names, err := NewContextResolver(testConfig(""), nil).Contexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"uat2", "prod-eu", "uat1", "dev1"}, names)
}

func TestContextResolver_AllowList(t *testing.T) {
	path := writeKubeconfig(t, t.TempDir(), "config", fleetKubeconfig)
	cfg := testConfig(path)
	cfg.Contexts = []string{"uat1", "uat2", "missing"}

	names, err := NewContextResolver(cfg, nil).Contexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"uat2", "uat1"}, names)
}

func TestContextResolver_TargetOutsideAllowList(t *testing.T) {
	path := writeKubeconfig(t, t.TempDir(), "config", fleetKubeconfig)
	cfg := testConfig(path)
	cfg.Contexts = []string{"uat1"}
	resolver := NewContextResolver(cfg, nil)

	target, err := resolver.Target("uat1")
	require.NoError(t, err)
	assert.Equal(t, "uat1", target.Context)

	target, err = resolver.Target("prod-eu")
	require.Error(t, err)
	assert.Empty(t, target)
	assert.Equal(t, notice.KindConfiguration, notice.KindOf(err))
	assert.Contains(t, err.Error(), `context "prod-eu" is not in the configured contexts`)
}

func TestContextResolver_NoContexts(t *testing.T) {
	path := writeKubeconfig(t, t.TempDir(), "config", "apiVersion: v1\nkind: Config\n")

	names, err := NewContextResolver(testConfig(path), nil).Contexts()
	require.Error(t, err)
	assert.Empty(t, names)
	assert.True(t, errors.Is(err, notice.ErrConfiguration))
}

func TestContextResolver_MissingExplicitFile(t *testing.T) {
	_, err := NewContextResolver(testConfig(filepath.Join(t.TempDir(), "nope")), nil).Targets()
	require.Error(t, err)
	assert.Equal(t, notice.KindConfiguration, notice.KindOf(err))
}

func TestContextResolver_NamespaceRules(t *testing.T) {
	path := writeKubeconfig(t, t.TempDir(), "config", fleetKubeconfig)

	tests := []struct {
		name  string
		rule  config.NamespaceRule
		fixed string
		want  map[string]string
	}{
		{
			name: "context name",
			rule: config.NamespaceFromContext,
			want: map[string]string{"uat2": "uat2", "prod-eu": "prod-eu", "uat1": "uat1"},
		},
		{
			name: "kubeconfig namespace with fallback",
			rule: config.NamespaceFromKubeconfig,
			want: map[string]string{"uat2": "uat2", "prod-eu": "shop", "uat1": "uat1"},
		},
		{
			name:  "fixed",
			rule:  config.NamespaceFixed,
			fixed: "web",
			want:  map[string]string{"uat2": "web", "prod-eu": "web", "uat1": "web"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(path)
			cfg.NamespaceRule = tt.rule
			cfg.FixedNamespace = tt.fixed

			targets, err := NewContextResolver(cfg, nil).Targets()
			require.NoError(t, err)
			got := map[string]string{}
			for _, target := range targets {
				got[target.Context] = target.Namespace
			}
			assert.Equal(t, tt.want, got)

			single, err := NewContextResolver(cfg, nil).Target("prod-eu")
			require.NoError(t, err)
			assert.Equal(t, tt.want["prod-eu"], single.Namespace)
		})
	}
}

func TestClientFactory_RESTConfig(t *testing.T) {
	path := writeKubeconfig(t, t.TempDir(), "config", fleetKubeconfig)
	cfg := testConfig(path)
	cfg.QPS = 5
	cfg.Burst = 7
	cfg.RequestTimeout = 3 * time.Second

	rc, err := NewClientFactory(cfg, nil).RESTConfig("prod-eu")
	require.NoError(t, err)
	assert.Equal(t, "https://prod.example.com", rc.Host)
	assert.Equal(t, float32(5), rc.QPS)
	assert.Equal(t, 7, rc.Burst)
	assert.Equal(t, 3*time.Second, rc.Timeout)
	assert.Equal(t, UserAgent, rc.UserAgent)
	assert.False(t, rc.Insecure)
	assert.NotEmpty(t, rc.CAData)
}

func TestClientFactory_InsecureSkipTLSVerify(t *testing.T) {
	path := writeKubeconfig(t, t.TempDir(), "config", fleetKubeconfig)
	cfg := testConfig(path)
	cfg.InsecureSkipTLSVerify = true

	rc, err := NewClientFactory(cfg, nil).RESTConfig("prod-eu")
	require.NoError(t, err)
	assert.True(t, rc.Insecure)
	assert.Empty(t, rc.CAData)
}

func TestClientFactory_UnknownContext(t *testing.T) {
	path := writeKubeconfig(t, t.TempDir(), "config", fleetKubeconfig)
	factory := NewClientFactory(testConfig(path), nil)

	_, err := factory.ForContext("staging")
	require.Error(t, err)

	_, err = NewClusterClient(factory, Target{Context: "staging", Namespace: "staging"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, notice.ErrClientConstruction))
	assert.Equal(t, "staging", notice.ClusterOf(err))
}

func TestClientFactory_ForContext(t *testing.T) {
	path := writeKubeconfig(t, t.TempDir(), "config", fleetKubeconfig)

	cc, err := NewClusterClient(NewClientFactory(testConfig(path), nil), Target{Context: "uat1", Namespace: "uat1"})
	require.NoError(t, err)
	assert.NotNil(t, cc.Clientset)
	assert.Equal(t, "uat1", cc.Namespace)
}

func TestStaticClientFactory(t *testing.T) {
	cs := fake.NewSimpleClientset()
	factory := StaticClientFactory{"uat1": cs}

	got, err := factory.ForContext("uat1")
	require.NoError(t, err)
	assert.Same(t, cs, got)

	_, err = factory.ForContext("uat2")
	assert.Error(t, err)
}
