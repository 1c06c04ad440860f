package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cozmogo/cozmogo/internal/actions"
	"github.com/cozmogo/cozmogo/internal/dispatch"
	"github.com/cozmogo/cozmogo/internal/schema"
)

// registerTools declares one MCP tool per catalog action. Declarations
// come from the same specs that build the model prompt, so the two
// surfaces cannot drift apart.
func (s *Server) registerTools() {
	for _, spec := range s.catalog.Specs() {
		opts := []mcp.ToolOption{mcp.WithDescription(spec.Description)}
		for _, p := range spec.Params {
			opts = append(opts, paramOption(p))
		}
		s.mcpServer.AddTool(mcp.NewTool(spec.Name, opts...), s.handleAction(spec.Name))
	}
}

func paramOption(p schema.Param) mcp.ToolOption {
	var propOpts []mcp.PropertyOption
	if p.Description != "" {
		propOpts = append(propOpts, mcp.Description(p.Description))
	}
	if p.Required {
		propOpts = append(propOpts, mcp.Required())
	}

	switch p.Type {
	case schema.TypeInteger, schema.TypeNumber:
		return mcp.WithNumber(p.Name, propOpts...)
	case schema.TypeBoolean:
		return mcp.WithBoolean(p.Name, propOpts...)
	default:
		return mcp.WithString(p.Name, propOpts...)
	}
}

// handleAction routes one tool call through the dispatcher. Failures come
// back as tool errors, never as protocol errors, so the calling agent
// sees what went wrong.
func (s *Server) handleAction(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		call := actions.FromStructured(name, request.GetArguments())
		batch := s.dispatcher.Execute(ctx, []actions.ParsedAction{call})

		out := batch.Outcomes[0]
		if out.Status != dispatch.StatusOK {
			return mcp.NewToolResultError(out.Reason), nil
		}
		if out.Result == "" {
			return mcp.NewToolResultText("succeeded"), nil
		}
		return mcp.NewToolResultText(out.Result), nil
	}
}
