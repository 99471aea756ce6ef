package fleettools

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/deployctl/internal/server"
)

// Tool names.
const (
	ToolListDeployments = "fleet_list_deployments"
	ToolPodInfo         = "deployment_pod_info"
	ToolRestart         = "deployment_restart"
	ToolStart           = "deployment_start"
	ToolStop            = "deployment_stop"
	ToolConfigMapUpdate = "configmap_update"
	ToolContexts        = "cluster_contexts"
)

func contextParam() mcp.ToolOption {
	return mcp.WithString("context",
		mcp.Required(),
		mcp.Description("Kubernetes context of the target cluster"),
	)
}

func deploymentParam() mcp.ToolOption {
	return mcp.WithString("deployment",
		mcp.Required(),
		mcp.Description("Name of the Deployment"),
	)
}

// RegisterFleetTools registers the fleet tools with the MCP server.
func RegisterFleetTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool(ToolListDeployments,
		mcp.WithDescription("List Deployments matching a label across every configured cluster. "+
			"'all' selects every Helm release, labels starting with 'prod' or 'uat' select a release, "+
			"anything else selects an app"),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Service, release or 'all'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of Deployments returned per cluster (default 100, max 1000)"),
		),
	)
	s.AddTool(listTool, withToolLogging(ToolListDeployments, handleListDeployments, sc))

	podInfoTool := mcp.NewTool(ToolPodInfo,
		mcp.WithDescription("Describe a Deployment's pods, export its manifest and show the ConfigMap it mounts"),
		contextParam(),
		mcp.WithString("app",
			mcp.Required(),
			mcp.Description("Value of the app label of the pods"),
		),
		deploymentParam(),
	)
	s.AddTool(podInfoTool, withToolLogging(ToolPodInfo, handlePodInfo, sc))

	restartTool := mcp.NewTool(ToolRestart,
		mcp.WithDescription("Restart a service by deleting its pods; the Deployment controller recreates them"),
		contextParam(),
		deploymentParam(),
	)
	s.AddTool(restartTool, withToolLogging(ToolRestart, handleRestart, sc))

	startTool := mcp.NewTool(ToolStart,
		mcp.WithDescription("Scale a Deployment to the replica count stored in its <deployment>-replicas ConfigMap"),
		contextParam(),
		deploymentParam(),
	)
	s.AddTool(startTool, withToolLogging(ToolStart, handleStart, sc))

	stopTool := mcp.NewTool(ToolStop,
		mcp.WithDescription("Scale a Deployment to zero replicas"),
		contextParam(),
		deploymentParam(),
	)
	s.AddTool(stopTool, withToolLogging(ToolStop, handleStop, sc))

	configMapTool := mcp.NewTool(ToolConfigMapUpdate,
		mcp.WithDescription("Set one ConfigMap key to a YAML value, optionally restarting a Deployment once the patch succeeded"),
		contextParam(),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the ConfigMap"),
		),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Data key to set"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("New value as YAML text; it is normalized before patching"),
		),
		mcp.WithString("namespace",
			mcp.Description("Namespace of the ConfigMap (default: the context's namespace)"),
		),
		mcp.WithString("restartDeployment",
			mcp.Description("Deployment to restart after a successful patch (optional)"),
		),
	)
	s.AddTool(configMapTool, withToolLogging(ToolConfigMapUpdate, handleConfigMapUpdate, sc))

	contextsTool := mcp.NewTool(ToolContexts,
		mcp.WithDescription("List the configured cluster contexts and the namespace used for each"),
	)
	s.AddTool(contextsTool, withToolLogging(ToolContexts, handleContexts, sc))

	return nil
}
