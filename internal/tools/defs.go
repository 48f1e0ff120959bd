package tools

import "github.com/mark3labs/mcp-go/mcp"

const relPathHint = "The file path relative to the workspace directory"

func stringItems() mcp.PropertyOption {
	return func(schema map[string]any) {
		schema["items"] = map[string]any{"type": "string"}
	}
}

func stringValues() mcp.PropertyOption {
	return func(schema map[string]any) {
		schema["additionalProperties"] = map[string]any{"type": "string"}
	}
}

var writeFileDef = mcp.NewTool("writeFile",
	mcp.WithDescription("Write content to a file in the workspace"),
	mcp.WithString("path", mcp.Required(), mcp.Description(relPathHint)),
	mcp.WithString("content", mcp.Required(), mcp.Description("The content to write to the file")),
)

var readFileDef = mcp.NewTool("readFile",
	mcp.WithDescription("Read the content of a file from the workspace"),
	mcp.WithString("path", mcp.Required(), mcp.Description(relPathHint)),
)

var appendFileDef = mcp.NewTool("appendFile",
	mcp.WithDescription("Append content to a file in the workspace, creating it if needed"),
	mcp.WithString("path", mcp.Required(), mcp.Description(relPathHint)),
	mcp.WithString("content", mcp.Required(), mcp.Description("The content to append")),
)

var deleteFileDef = mcp.NewTool("deleteFile",
	mcp.WithDescription("Delete a file from the workspace"),
	mcp.WithString("path", mcp.Required(), mcp.Description(relPathHint)),
)

var listFilesDef = mcp.NewTool("listFiles",
	mcp.WithDescription("List files in the workspace directory"),
	mcp.WithString("directory",
		mcp.Description("The directory path relative to the workspace directory (optional, defaults to root)"),
		mcp.DefaultString("."),
	),
)

var copyFileDef = mcp.NewTool("copyFile",
	mcp.WithDescription("Copy a file from one path to another in the workspace"),
	mcp.WithString("src", mcp.Required(), mcp.Description("Source file path relative to workspace")),
	mcp.WithString("dest", mcp.Required(), mcp.Description("Destination file path relative to workspace")),
)

var moveFileDef = mcp.NewTool("moveFile",
	mcp.WithDescription("Move or rename a file in the workspace"),
	mcp.WithString("src", mcp.Required(), mcp.Description("Source file path relative to workspace")),
	mcp.WithString("dest", mcp.Required(), mcp.Description("Destination file path relative to workspace")),
)

var executeFileDef = mcp.NewTool("executeFile",
	mcp.WithDescription("Execute a TypeScript/JavaScript file using the Andromeda runtime"),
	mcp.WithString("path", mcp.Required(), mcp.Description(relPathHint)),
	mcp.WithArray("args",
		mcp.Description("Command line arguments to pass to the file (optional)"),
		stringItems(),
	),
)

var runAndDebugDef = mcp.NewTool("runAndDebug",
	mcp.WithDescription("Run a file with Andromeda and return stdout and stderr for manual refactoring"),
	mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to workspace")),
	mcp.WithArray("args",
		mcp.Description("Arguments to pass to the file"),
		stringItems(),
	),
)

var getEnvDef = mcp.NewTool("getEnv",
	mcp.WithDescription("Get an environment variable value"),
	mcp.WithString("key", mcp.Required(), mcp.Description("Environment variable name")),
)

var setEnvDef = mcp.NewTool("setEnv",
	mcp.WithDescription("Set an environment variable"),
	mcp.WithString("key", mcp.Required(), mcp.Description("Environment variable name")),
	mcp.WithString("value", mcp.Required(), mcp.Description("Value to set")),
)

var removeEnvDef = mcp.NewTool("removeEnv",
	mcp.WithDescription("Remove an environment variable"),
	mcp.WithString("key", mcp.Required(), mcp.Description("Environment variable name")),
)

var listEnvDef = mcp.NewTool("listEnv",
	mcp.WithDescription("List all environment variables"),
)

var fetchURLDef = mcp.NewTool("fetchUrl",
	mcp.WithDescription("Fetch content from a URL"),
	mcp.WithString("url", mcp.Required(), mcp.Description("HTTP URL to fetch")),
	mcp.WithString("method", mcp.Description("HTTP method"), mcp.DefaultString("GET")),
	mcp.WithObject("headers",
		mcp.Description("Request headers"),
		stringValues(),
	),
	mcp.WithString("body", mcp.Description("Request body")),
)

var runShellDef = mcp.NewTool("runShell",
	mcp.WithDescription("Run a shell command in the workspace"),
	mcp.WithString("command", mcp.Required(), mcp.Description("Command to run")),
)

var typeCheckDef = mcp.NewTool("typeCheck",
	mcp.WithDescription("Type-check the workspace"),
	mcp.WithString("config", mcp.Description("Optional deno.json path relative to workspace")),
)

var thinkDef = mcp.NewTool("think",
	mcp.WithDescription("Record a thought or plan before acting. Has no side effects."),
	mcp.WithString("thought", mcp.Required(), mcp.Description("The reasoning to record")),
)
