package fleettools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/deployctl/internal/logging"
	"github.com/giantswarm/deployctl/internal/server"
)

// toolHandler is a tool handler that takes the ServerContext.
type toolHandler func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

// withToolLogging adapts handler to mcp-go and logs every invocation with
// its cluster, deployment, outcome and duration.
func withToolLogging(toolName string, handler toolHandler, sc *server.ServerContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		logger := logging.WithTool(sc.Logger(), toolName)

		result, err := handler(ctx, request, sc)

		attrs := []any{logging.Duration(start)}
		args := request.GetArguments()
		if c, ok := args["context"].(string); ok && c != "" {
			attrs = append(attrs, logging.Cluster(c))
		}
		if d, ok := args["deployment"].(string); ok && d != "" {
			attrs = append(attrs, logging.Deployment(d))
		}

		switch {
		case err != nil:
			logger.Error("tool invocation failed", append(attrs, logging.Err(err))...)
		case result != nil && result.IsError:
			logger.Warn("tool returned an error", append(attrs, logging.Status("error"))...)
		default:
			logger.Info("tool invocation", append(attrs, logging.Status("success"))...)
		}
		return result, err
	}
}

