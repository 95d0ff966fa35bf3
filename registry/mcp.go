package registry

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ExecuteFunc runs a named tool with parsed arguments and returns the
// result text plus an error flag. Used to route MCP calls through the
// caller's approval pipeline rather than straight into executors.
type ExecuteFunc func(ctx context.Context, name string, args map[string]any) (content string, isError bool, err error)

// BindMCP registers every enabled tool on an MCP server. Execution goes
// through exec, so MCP clients get the same approval gating as direct
// callers.
func (r *Registry) BindMCP(srv *server.MCPServer, exec ExecuteFunc) {
	for _, desc := range r.List(Filter{EnabledOnly: true}) {
		name := desc.Name
		srv.AddTool(mcpTool(desc), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			content, isError, err := exec(ctx, name, req.Params.Arguments)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if isError {
				return mcp.NewToolResultError(content), nil
			}
			return mcp.NewToolResultText(content), nil
		})
	}
}

func mcpTool(desc Descriptor) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(desc.Description)}

	required := make(map[string]bool, len(desc.InputSchema.Required))
	for _, name := range desc.InputSchema.Required {
		required[name] = true
	}

	for propName, prop := range desc.InputSchema.Properties {
		var propOpts []mcp.PropertyOption
		if required[propName] {
			propOpts = append(propOpts, mcp.Required())
		}
		if prop.Description != "" {
			propOpts = append(propOpts, mcp.Description(prop.Description))
		}

		switch prop.Type {
		case "number", "integer":
			opts = append(opts, mcp.WithNumber(propName, propOpts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(propName, propOpts...))
		case "array":
			opts = append(opts, mcp.WithArray(propName, propOpts...))
		case "object":
			opts = append(opts, mcp.WithObject(propName, propOpts...))
		default:
			opts = append(opts, mcp.WithString(propName, propOpts...))
		}
	}

	return mcp.NewTool(desc.Name, opts...)
}
