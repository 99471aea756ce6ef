package fleettools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/deployctl/internal/dispatch"
	"github.com/giantswarm/deployctl/internal/server"
)

func handleListDeployments(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	label, err := request.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := sc.Dispatcher().Dispatch(ctx, dispatch.Request{Action: dispatch.ActionGet, Label: label})

	limit := DefaultMaxDeployments
	if v, ok := request.GetArguments()["limit"].(float64); ok {
		limit = int(v)
	}
	if result.Fleet != nil {
		if n, truncated := truncateView(result.Fleet, limit); truncated {
			result.Notices.Add(n)
		}
	}
	return renderResult(result)
}

func handlePodInfo(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args, err := requireStrings(request, "context", "app", "deployment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return renderResult(sc.Dispatcher().Dispatch(ctx, dispatch.Request{
		Action:     dispatch.ActionGetPodInfo,
		Context:    args["context"],
		App:        args["app"],
		Deployment: args["deployment"],
	}))
}

func handleRestart(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return handleScaleAction(ctx, request, sc, dispatch.ActionRestart)
}

func handleStart(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return handleScaleAction(ctx, request, sc, dispatch.ActionStart)
}

func handleStop(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return handleScaleAction(ctx, request, sc, dispatch.ActionStop)
}

func handleScaleAction(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, action dispatch.Action) (*mcp.CallToolResult, error) {
	args, err := requireStrings(request, "context", "deployment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return renderResult(sc.Dispatcher().Dispatch(ctx, dispatch.Request{
		Action:     action,
		Context:    args["context"],
		Deployment: args["deployment"],
	}))
}

func handleConfigMapUpdate(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args, err := requireStrings(request, "context", "name", "key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// An empty value is allowed; it clears the key.
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	edit := &dispatch.ConfigMapEdit{
		Namespace:         request.GetString("namespace", ""),
		Name:              args["name"],
		Key:               args["key"],
		Value:             value,
		RestartDeployment: request.GetString("restartDeployment", ""),
	}
	action := dispatch.ActionUpdateConfigMap
	if edit.RestartDeployment != "" {
		action = dispatch.ActionUpdateConfigMapRestart
	}

	return renderResult(sc.Dispatcher().Dispatch(ctx, dispatch.Request{
		Action:    action,
		Context:   args["context"],
		ConfigMap: edit,
	}))
}

func handleContexts(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	targets, err := sc.Dispatcher().Contexts(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list contexts: %v", err)), nil
	}

	jsonData, err := json.MarshalIndent(targets, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal contexts: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// requireStrings reads required non-empty string arguments.
func requireStrings(request mcp.CallToolRequest, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		v, err := request.RequireString(name)
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
		out[name] = v
	}
	return out, nil
}

// renderResult returns the dispatch result as JSON. The call is flagged as
// failed only when warnings were produced and nothing else came back.
func renderResult(result dispatch.Result) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal result: %v", err)), nil
	}

	hasData := result.Fleet != nil || result.PodInfo != nil || result.Replicas != nil ||
		(result.Pipeline != nil && result.Pipeline.Steps[0].Completed)
	if result.Failed() && !hasData {
		return mcp.NewToolResultError(string(jsonData)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
