// Package mcptools provides the MCP tool handlers of the memory service.
//
// Each tool follows the same pattern:
// - A struct with its dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Tool handlers return protocol-level errors only for transport problems;
// domain failures come back as tool error results.
package mcptools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// userIDArg extracts the mandatory user_id argument (JSON numbers are
// float64). Zero means the argument was missing or not numeric.
func userIDArg(req mcp.CallToolRequest) int64 {
	v, ok := req.GetArguments()["user_id"].(float64)
	if !ok {
		return 0
	}
	return int64(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// jsonResult marshals v as an indented JSON tool result.
func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error())
	}
	return mcp.NewToolResultText(string(out))
}
