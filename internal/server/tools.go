package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"supermcp/internal/handlers"
)

// toolViewContent renders a handlers.ToolView list as a single text block.
// Agents read this through use_tool's companion listing calls, not as
// structured JSON, matching the catalog's own summary/args-skeleton shape.
func toolViewContent(tools []handlers.ToolView) []mcp.Content {
	if len(tools) == 0 {
		return []mcp.Content{mcp.TextContent{Type: "text", Text: "no tools matched"}}
	}
	text := ""
	for _, t := range tools {
		line := fmt.Sprintf("%s (package: %s)", t.Name, t.PackageID)
		if t.Blocked {
			line += fmt.Sprintf(" [blocked: %s]", t.BlockedReason)
		}
		if t.Summary != "" {
			line += "\n  " + t.Summary
		} else if t.Description != "" {
			line += "\n  " + t.Description
		}
		text += line + "\n"
	}
	return []mcp.Content{mcp.TextContent{Type: "text", Text: text}}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}}}
}

// registerTools builds the server.ServerTool set wrapping every
// handlers.Handlers operation, following the teacher's createToolHandler
// shape: extract args defensively, dispatch to the domain call, convert a
// returned error into an IsError result rather than a transport failure.
func (s *Server) registerTools() []mcpserver.ServerTool {
	return []mcpserver.ServerTool{
		s.listToolPackagesTool(),
		s.listToolsTool(),
		s.useToolTool(),
		s.authenticateTool(),
		s.restartPackageTool(),
		s.healthCheckTool(),
		s.healthCheckAllTool(),
		s.searchToolsTool(),
		s.getHelpTool(),
	}
}

func (s *Server) listToolPackagesTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "list_tool_packages",
			Description: "List every configured upstream package, its connection status, and how many tools it exposes.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"include_health_check": map[string]interface{}{
						"type":        "boolean",
						"description": "Also run each package's health check before reporting status.",
					},
				},
			},
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := argsMap(req)
			result, err := s.handlers.ListToolPackages(ctx, handlers.ListToolPackagesParams{
				IncludeHealthCheck: argBool(args, "include_health_check"),
			})
			if err != nil {
				return errorResult(err), nil
			}
			text := ""
			for _, pkg := range result.Packages {
				text += fmt.Sprintf("%s (%s): status=%s tools=%d", pkg.ID, pkg.Transport, pkg.Status, pkg.ToolCount)
				if pkg.Health != "" {
					text += " health=" + pkg.Health
				}
				if pkg.LastError != "" {
					text += " error=" + pkg.LastError
				}
				text += "\n"
			}
			return textResult(text), nil
		},
	}
}

func (s *Server) listToolsTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "list_tools",
			Description: "Browse the cached tool catalog, optionally filtered by a glob name_pattern, paginated with an opaque cursor.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"cursor":       map[string]interface{}{"type": "string", "description": "Opaque pagination cursor returned by a previous call."},
					"name_pattern": map[string]interface{}{"type": "string", "description": "Glob pattern, e.g. \"fs__*\"."},
					"page_size":    map[string]interface{}{"type": "number", "description": "Maximum tools to return, default 50."},
				},
			},
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := argsMap(req)
			result, err := s.handlers.ListTools(ctx, handlers.ListToolsParams{
				Cursor:      argString(args, "cursor"),
				NamePattern: argString(args, "name_pattern"),
				PageSize:    argInt(args, "page_size"),
			})
			if err != nil {
				return errorResult(err), nil
			}
			out := textResult("")
			out.Content = toolViewContent(result.Tools)
			if result.NextCursor != "" {
				out.Content = append(out.Content, mcp.TextContent{Type: "text", Text: "next_cursor: " + result.NextCursor})
			}
			return out, nil
		},
	}
}

func (s *Server) useToolTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "use_tool",
			Description: "Call an upstream tool by id, either fully namespaced (\"pkg__tool\") or with package_id and tool_id separately.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"package_id":       map[string]interface{}{"type": "string"},
					"tool_id":          map[string]interface{}{"type": "string"},
					"args":             map[string]interface{}{"type": "object", "description": "Arguments forwarded to the upstream tool."},
					"dry_run":          map[string]interface{}{"type": "boolean", "description": "Validate and report what would be called without calling it."},
					"max_output_chars": map[string]interface{}{"type": "number", "description": "Override the output truncation cap for this call."},
				},
				Required: []string{"tool_id"},
			},
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := argsMap(req)
			result, err := s.handlers.UseTool(ctx, handlers.UseToolParams{
				PackageID:      argString(args, "package_id"),
				ToolID:         argString(args, "tool_id"),
				Args:           argStringMap(args, "args"),
				DryRun:         argBool(args, "dry_run"),
				MaxOutputChars: argInt(args, "max_output_chars"),
			})
			if err != nil {
				return errorResult(err), nil
			}
			content := result.Content
			if result.Warning != "" {
				content = append(content, mcp.TextContent{Type: "text", Text: result.Warning})
			}
			return &mcp.CallToolResult{Content: content, IsError: result.IsError}, nil
		},
	}
}

func (s *Server) authenticateTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "authenticate",
			Description: "Run the interactive OAuth flow for an oauth-configured package.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"package_id": map[string]interface{}{"type": "string"}},
				Required:   []string{"package_id"},
			},
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := argsMap(req)
			result, err := s.handlers.Authenticate(ctx, argString(args, "package_id"))
			if err != nil {
				return errorResult(err), nil
			}
			text := result.Status
			if result.Message != "" {
				text += ": " + result.Message
			}
			return textResult(text), nil
		},
	}
}

func (s *Server) restartPackageTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "restart_package",
			Description: "Close and re-create a package's client, re-reading its configuration from disk.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"package_id": map[string]interface{}{"type": "string"}},
				Required:   []string{"package_id"},
			},
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := argsMap(req)
			result, err := s.handlers.RestartPackage(ctx, argString(args, "package_id"))
			if err != nil {
				return errorResult(err), nil
			}
			return textResult(fmt.Sprintf("%s: %s", result.PackageID, result.Status)), nil
		},
	}
}

func (s *Server) healthCheckTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "health_check",
			Description: "Check one package's live health without touching its tool catalog.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"package_id": map[string]interface{}{"type": "string"}},
				Required:   []string{"package_id"},
			},
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := argsMap(req)
			result, err := s.handlers.HealthCheck(ctx, argString(args, "package_id"))
			if err != nil {
				return errorResult(err), nil
			}
			return textResult(fmt.Sprintf("%s: %s", result.PackageID, result.Status)), nil
		},
	}
}

func (s *Server) healthCheckAllTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "health_check_all",
			Description: "Check every configured package's live health concurrently.",
			InputSchema: mcp.ToolInputSchema{Type: "object"},
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := s.handlers.HealthCheckAll(ctx)
			if err != nil {
				return errorResult(err), nil
			}
			text := ""
			for _, r := range result.Results {
				text += fmt.Sprintf("%s: %s\n", r.PackageID, r.Status)
			}
			return textResult(text), nil
		},
	}
}

func (s *Server) searchToolsTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "search_tools",
			Description: "Rank cached, ready tools against a free-text query.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query": map[string]interface{}{"type": "string"},
					"limit": map[string]interface{}{"type": "number"},
				},
				Required: []string{"query"},
			},
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := argsMap(req)
			result, err := s.handlers.SearchTools(ctx, handlers.SearchToolsParams{
				Query: argString(args, "query"),
				Limit: argInt(args, "limit"),
			})
			if err != nil {
				return errorResult(err), nil
			}
			out := textResult("")
			out.Content = toolViewContent(result.Tools)
			return out, nil
		},
	}
}

func (s *Server) getHelpTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "get_help",
			Description: "Return static help text for a topic, defaulting to an overview of the router's own tools.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"topic": map[string]interface{}{"type": "string"}},
			},
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := argsMap(req)
			result, err := s.handlers.GetHelp(ctx, argString(args, "topic"))
			if err != nil {
				return errorResult(err), nil
			}
			return textResult(result.Text), nil
		},
	}
}
