package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := rawArguments(req)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(b), &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// rawArguments re-encodes the request arguments as the JSON text the catalog validates.
func rawArguments(req mcp.CallToolRequest) (string, error) {
	args := req.GetArguments()
	if args == nil {
		return "{}", nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(b), nil
}
