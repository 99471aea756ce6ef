// Package integration provides end-to-end tests for deployctl.
//
// These tests mount the fleet tools on a real streamable HTTP MCP server,
// backed by fake clusters, and call them with the mcp-go client.
//
// Run with: go test -v ./tests/integration/... -tags=integration
//
//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/dispatch"
	"github.com/giantswarm/deployctl/internal/k8s"
	"github.com/giantswarm/deployctl/internal/server"
	fleettools "github.com/giantswarm/deployctl/internal/tools/fleet"
)

const kubeconfig = `apiVersion: v1
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
- name: uat1
  context:
    cluster: c
    user: u
- name: prod-eu
  context:
    cluster: c
    user: u
current-context: uat1
`

func deployment(namespace, name string) *appsv1.Deployment {
	replicas := int32(1)
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{"app": name, "release": namespace},
		},
		Spec: appsv1.DeploymentSpec{Replicas: &replicas},
	}
}

// startServer serves the fleet tools over streamable HTTP and returns a
// connected, initialized client.
func startServer(t *testing.T, mutate func(*config.Config)) *client.Client {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(kubeconfig), 0o600))

	cfg := config.Default()
	cfg.KubeconfigPath = path
	cfg.ExportDir = filepath.Join(dir, "exports")
	if mutate != nil {
		mutate(&cfg)
	}

	factory := k8s.StaticClientFactory{
		"uat1":    fake.NewSimpleClientset(deployment("uat1", "checkout"), deployment("uat1", "cart")),
		"prod-eu": fake.NewSimpleClientset(deployment("prod-eu", "checkout")),
	}
	d := dispatch.NewDispatcher(cfg, k8s.NewContextResolver(cfg, nil), factory, nil, nil)

	sc, err := server.NewServerContext(context.Background(),
		server.WithDispatcher(d),
		server.WithVersion("1.0.0"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown(context.Background()) })

	mcpSrv := mcpserver.NewMCPServer(sc.Name(), sc.Version(),
		mcpserver.WithToolCapabilities(true),
	)
	require.NoError(t, fleettools.RegisterFleetTools(mcpSrv, sc))

	ts := httptest.NewServer(mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mcpClient, err := client.NewStreamableHttpClient(ts.URL + "/mcp")
	require.NoError(t, err, "Failed to create MCP client")
	require.NoError(t, mcpClient.Start(ctx), "Failed to start MCP client transport")
	t.Cleanup(func() { _ = mcpClient.Close() })

	initResult, err := mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "integration-test",
				Version: "1.0.0",
			},
		},
	})
	require.NoError(t, err, "Failed to initialize MCP client")
	assert.Equal(t, server.DefaultServerName, initResult.ServerInfo.Name)

	return mcpClient
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := c.CallTool(ctx, mcp.CallToolRequest{
		Request: mcp.Request{Method: "tools/call"},
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	require.NoError(t, err, "Failed to call %s", name)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return result, text.Text
}

func TestStreamableHTTP_ListTools(t *testing.T) {
	c := startServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	toolsResp, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)

	var names []string
	for _, tool := range toolsResp.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		fleettools.ToolListDeployments,
		fleettools.ToolPodInfo,
		fleettools.ToolRestart,
		fleettools.ToolStart,
		fleettools.ToolStop,
		fleettools.ToolConfigMapUpdate,
		fleettools.ToolContexts,
	}, names)
}

func TestStreamableHTTP_FleetListing(t *testing.T) {
	c := startServer(t, nil)

	result, text := callTool(t, c, fleettools.ToolListDeployments, map[string]any{"label": "checkout"})
	assert.False(t, result.IsError)

	var out dispatch.Result
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	require.NotNil(t, out.Fleet)
	assert.Equal(t, []string{"uat1", "prod-eu"}, out.Fleet.Contexts())
}

func TestStreamableHTTP_Contexts(t *testing.T) {
	c := startServer(t, nil)

	_, text := callTool(t, c, fleettools.ToolContexts, nil)

	var targets []k8s.Target
	require.NoError(t, json.Unmarshal([]byte(text), &targets))
	assert.Len(t, targets, 2)
}

func TestStreamableHTTP_ReadOnlyRefusesWrites(t *testing.T) {
	c := startServer(t, func(cfg *config.Config) { cfg.ReadOnly = true })

	result, text := callTool(t, c, fleettools.ToolStop, map[string]any{
		"context":    "uat1",
		"deployment": "checkout",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "not allowed in read-only mode")
}

func TestStreamableHTTP_RepeatedCalls(t *testing.T) {
	c := startServer(t, nil)

	for i := 0; i < 3; i++ {
		result, _ := callTool(t, c, fleettools.ToolListDeployments, map[string]any{
			"label": fmt.Sprintf("uat%d", i),
		})
		assert.False(t, result.IsError, "iteration %d", i)
	}
}

// TestMain sets up logging for integration tests
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	os.Exit(m.Run())
}
