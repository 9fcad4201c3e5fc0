package server

import "github.com/mark3labs/mcp-go/mcp"

// textOf extracts the text of a CallToolResult's first content item, for
// tests that only care about the rendered payload.
func textOf(result *mcp.CallToolResult) (string, bool) {
	if len(result.Content) == 0 {
		return "", false
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "", false
	}
	return text.Text, true
}
