package agent

import (
	"embed"

	"github.com/cbroglie/mustache"
	"github.com/mark3labs/mcp-go/mcp"
)

func init() {
	mustache.AllowMissingVariables = false
}

//go:embed prompts/*.mustache
var promptsFS embed.FS

var systemPrompt = mustParseTemplate("prompts/system.mustache")

func mustParseTemplate(path string) *mustache.Template {
	data, err := promptsFS.ReadFile(path)
	if err != nil {
		panic(err)
	}
	tmpl, err := mustache.ParseString(string(data))
	if err != nil {
		panic(err)
	}
	return tmpl
}

// SystemPrompt renders the system prompt for the given workspace directory and tools.
func SystemPrompt(workspaceDir string, defs []mcp.Tool) (string, error) {
	tools := make([]map[string]string, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, map[string]string{"name": def.Name, "description": def.Description})
	}
	return systemPrompt.Render(map[string]any{
		"workspaceDir": workspaceDir,
		"tools":        tools,
	})
}
