package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tryandromeda/copilot/internal/tools"
	"github.com/tryandromeda/copilot/internal/workspace"
)

// ServerName is advertised in the MCP initialize handshake.
const ServerName = "andromeda-copilot"

// Workspace tools are only offered over MCP; the model inside a chat turn
// cannot change the workspace it is working in.
var (
	listWorkspacesToolDef = mcp.NewTool("listWorkspaces",
		mcp.WithDescription("List registered workspaces, most recently used first, and the current one"),
	)

	switchWorkspaceToolDef = mcp.NewTool("switchWorkspace",
		mcp.WithDescription("Make a workspace current by id or name; file and process tools then operate inside it"),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace id or name (case-insensitive)")),
	)
)

// NewServer creates an MCP server exposing every enabled catalog tool.
// The workspace tools are added when registry is non-nil.
func NewServer(catalog *tools.Catalog, env *tools.Env, registry *workspace.Registry, version string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(catalog, env, registry)
	for _, def := range catalog.Tools() {
		s.AddTool(def, h.catalogHandler(def.Name))
	}
	if registry != nil {
		s.AddTool(listWorkspacesToolDef, h.HandleListWorkspaces)
		s.AddTool(switchWorkspaceToolDef, h.HandleSwitchWorkspace)
	}
	return s
}

// Run starts the MCP server using stdio transport.
func Run(catalog *tools.Catalog, env *tools.Env, registry *workspace.Registry, version string) error {
	return server.ServeStdio(NewServer(catalog, env, registry, version))
}
