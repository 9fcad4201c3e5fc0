package server

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"supermcp/internal/handlers"
)

// errorResult turns a handlers.Error (or any other error) into the
// CallToolResult shape a tool-call failure takes on the wire. mcp-go's
// CallToolResult carries IsError and a free-form Content slice, with no
// protocol-level slot for an integer error code, so the code travels inside
// the text content as a small JSON envelope the agent can parse:
// {"code": -32002, "message": "..."}.
func errorResult(err error) *mcp.CallToolResult {
	code := handlers.CodeInternalError
	var herr *handlers.Error
	if errors.As(err, &herr) {
		code = herr.Code
	}
	payload, marshalErr := json.Marshal(map[string]interface{}{
		"code":    int(code),
		"message": err.Error(),
	})
	if marshalErr != nil {
		payload = []byte(err.Error())
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(payload)}},
	}
}
