package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/i2y/bqmcp/internal/domain"
	"github.com/i2y/bqmcp/internal/usecase"
)

// ToolInvoker runs a registered tool by name.
type ToolInvoker interface {
	Execute(ctx context.Context, toolName string, params map[string]interface{}) (*domain.ToolResult, error)
}

// Registrar exposes domain tools on an mcp-go server. Every call is routed
// through the invoker so validation, tracing and metrics apply uniformly.
type Registrar struct {
	server  *mcpGoServer.MCPServer
	invoker ToolInvoker
	logger  *slog.Logger
}

var _ usecase.ToolRegistrar = (*Registrar)(nil)

// NewRegistrar creates a Registrar for the given server.
func NewRegistrar(server *mcpGoServer.MCPServer, invoker ToolInvoker, logger *slog.Logger) *Registrar {
	return &Registrar{
		server:  server,
		invoker: invoker,
		logger:  logger.With("component", "mcp_registrar"),
	}
}

// Register adds the tool to the MCP server.
func (r *Registrar) Register(tool domain.Tool) error {
	raw, err := tool.InputSchema.RawSchema()
	if err != nil {
		return fmt.Errorf("failed to encode input schema of tool %s: %w", tool.Name, err)
	}
	r.server.AddTool(mcp.NewToolWithRawSchema(tool.Name, tool.Description, raw), r.handler(tool.Name))
	return nil
}

func (r *Registrar) handler(toolName string) mcpGoServer.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := r.invoker.Execute(ctx, toolName, request.GetArguments())
		if err != nil {
			if errors.Is(err, usecase.ErrToolNotFound) {
				r.logger.Warn("Call for unknown tool", slog.String("tool_name", toolName))
			} else {
				r.logger.Error("Tool invocation failed", slog.String("tool_name", toolName), slog.Any("error", err))
			}
			return toCallToolResult(domain.Failure(err.Error())), nil
		}
		return toCallToolResult(result), nil
	}
}

func toCallToolResult(result *domain.ToolResult) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(result.Content))
	for _, c := range result.Content {
		content = append(content, mcp.NewTextContent(c.Text))
	}
	return &mcp.CallToolResult{
		Content: content,
		IsError: result.IsError,
	}
}
