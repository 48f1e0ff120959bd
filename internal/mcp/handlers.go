package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tryandromeda/copilot/internal/errors"
	"github.com/tryandromeda/copilot/internal/tools"
	"github.com/tryandromeda/copilot/internal/workspace"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	catalog  *tools.Catalog
	env      *tools.Env
	registry *workspace.Registry
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(catalog *tools.Catalog, env *tools.Env, registry *workspace.Registry) *Handlers {
	return &Handlers{catalog: catalog, env: env, registry: registry}
}

// SwitchWorkspaceRequest represents the arguments for switchWorkspace.
type SwitchWorkspaceRequest struct {
	Workspace string `json:"workspace"`
}

// catalogHandler runs a catalog tool. The tool's {success, output, error}
// object is the text content; IsError mirrors success.
func (h *Handlers) catalogHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := rawArguments(req)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}
		res := h.catalog.Execute(ctx, h.env, name, raw)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: res.JSON()}},
			IsError: !res.Success,
		}, nil
	}
}

// HandleListWorkspaces handles the listWorkspaces tool.
func (h *Handlers) HandleListWorkspaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var current *workspace.Workspace
	if ws, ok := h.registry.Current(); ok {
		current = &ws
	}
	return jsonResult(map[string]any{
		"workspaces":       h.registry.List(),
		"currentWorkspace": current,
	})
}

// HandleSwitchWorkspace handles the switchWorkspace tool.
func (h *Handlers) HandleSwitchWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[SwitchWorkspaceRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if args.Workspace == "" {
		return errorResult(errors.NewInvalidRequest("workspace is required")), nil
	}

	target, ok := h.registry.Find(args.Workspace)
	if !ok {
		return errorResult(errors.NewNotFound(args.Workspace)), nil
	}
	ws, err := h.registry.SetCurrent(target.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(ws)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(v)
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
	}, nil
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	cErr := errors.As(err)
	errorObj := map[string]any{
		"code":    cErr.Code,
		"message": cErr.Message,
		"status":  cErr.Status,
	}
	// Internal errors can carry file paths; keep their details out of the result.
	if cErr.Code != errors.ErrInternal && cErr.Details != nil {
		errorObj["details"] = cErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}
