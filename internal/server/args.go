package server

import "github.com/mark3labs/mcp-go/mcp"

// argsMap extracts a tool call's arguments as a map, mirroring the
// defensive type assertion mcp-go callers use since req.Params.Arguments
// arrives as interface{} off the wire.
func argsMap(req mcp.CallToolRequest) map[string]interface{} {
	args := make(map[string]interface{})
	if req.Params.Arguments != nil {
		if m, ok := req.Params.Arguments.(map[string]interface{}); ok {
			args = m
		}
	}
	return args
}

func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argBool(args map[string]interface{}, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

// argInt reads a numeric argument. JSON-decoded arguments arrive as
// float64, never int, so that is the only numeric kind handled here.
func argInt(args map[string]interface{}, key string) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return 0
}

func argStringMap(args map[string]interface{}, key string) map[string]interface{} {
	if v, ok := args[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}
