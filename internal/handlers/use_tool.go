package handlers

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"supermcp/internal/catalog"
	"supermcp/pkg/logging"
)

// noCapWarningThreshold is the output size above which use_tool attaches a
// warning banner when the caller set no max_output_chars.
const noCapWarningThreshold = 150_000

// UseToolParams is use_tool's input. ToolID may be a bare short name (when
// PackageID is given) or a namespaced "{pkg}__{tool}" id.
type UseToolParams struct {
	PackageID      string
	ToolID         string
	Args           map[string]interface{}
	DryRun         bool
	MaxOutputChars int
}

// UseToolResult is use_tool's output.
type UseToolResult struct {
	PackageID      string
	ToolName       string
	DryRun         bool
	StrippedArgs   []string
	Content        []mcp.Content
	IsError        bool
	Truncated      bool
	TruncatedChars int
	Warning        string
}

// UseTool resolves a (possibly namespaced) tool id, enforces the security
// and user-disabled gates, ensures the owning package's catalog is loaded,
// validates/strips unknown arguments, and dispatches the call through the
// package's request queue with the configured timeout.
func (h *Handlers) UseTool(ctx context.Context, params UseToolParams) (*UseToolResult, error) {
	pkgID, toolName, ok := resolveToolID(params.PackageID, params.ToolID)
	if !ok {
		return nil, newError(CodeInvalidParams, "tool_id %q does not resolve to a package and tool name", params.ToolID)
	}

	policy := h.Policy()
	if decision := policy.IsPackageBlocked(pkgID); decision.Blocked {
		return nil, newError(CodeToolBlocked, "package %q is blocked: %s", pkgID, decision.Reason)
	}
	if decision := policy.EvaluateTool(pkgID, toolName); decision.Blocked {
		if policy.LogBlockedAttempts() {
			logging.Info("handlers", "blocked use_tool for %s: %s", namespacedName(pkgID, toolName), decision.Reason)
		}
		return nil, newError(CodeToolBlocked, "tool %q is blocked: %s", namespacedName(pkgID, toolName), decision.Reason)
	}

	client, err := h.Registry.GetClient(ctx, pkgID)
	if err != nil {
		return nil, classifyRegistryError(err)
	}

	entry, err := h.Catalog.EnsureLoaded(ctx, pkgID, client)
	if err != nil {
		return nil, newError(CodeDownstreamError, "loading tool catalog for %q: %v", pkgID, err)
	}
	if entry.Status != catalog.StatusReady {
		return nil, newError(CodePackageUnavailable, "package %q is unavailable: %s", pkgID, entry.LastError)
	}

	namespaced := namespacedName(pkgID, toolName)
	tool, found := findTool(entry, namespaced)
	if !found {
		return nil, newError(CodeToolNotFound, "tool %q not found in package %q", toolName, pkgID)
	}

	cleanedArgs, stripped := stripUnknownProperties(tool.InputSchema, params.Args)

	if params.DryRun {
		return &UseToolResult{PackageID: pkgID, ToolName: toolName, DryRun: true, StrippedArgs: stripped}, nil
	}

	timeout := h.toolTimeoutFor(pkgID)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := client.CallTool(callCtx, toolName, cleanedArgs)
	if err != nil {
		return nil, newError(CodeDownstreamError, "calling %q: %v", namespaced, err)
	}
	h.Catalog.ClearPackage(pkgID)

	out := &UseToolResult{
		PackageID:    pkgID,
		ToolName:     toolName,
		StrippedArgs: stripped,
		Content:      result.Content,
		IsError:      result.IsError,
	}
	applyOutputLimit(out, params.MaxOutputChars)
	return out, nil
}

func findTool(entry *catalog.Entry, namespaced string) (catalog.Tool, bool) {
	for _, t := range entry.Tools {
		if t.Name == namespaced {
			return t, true
		}
	}
	return catalog.Tool{}, false
}

func applyOutputLimit(out *UseToolResult, maxChars int) {
	total := 0
	for _, c := range out.Content {
		if text, ok := c.(mcp.TextContent); ok {
			total += len(text.Text)
		}
	}

	if maxChars > 0 && total > maxChars {
		out.Content = truncateContent(out.Content, maxChars)
		out.Truncated = true
		out.TruncatedChars = total - maxChars
		return
	}
	if maxChars <= 0 && total > noCapWarningThreshold {
		out.Warning = fmt.Sprintf("output is %d characters with no max_output_chars cap set", total)
	}
}

func truncateContent(content []mcp.Content, maxChars int) []mcp.Content {
	out := make([]mcp.Content, 0, len(content))
	remaining := maxChars
	for _, c := range content {
		text, ok := c.(mcp.TextContent)
		if !ok {
			out = append(out, c)
			continue
		}
		if remaining <= 0 {
			continue
		}
		if len(text.Text) > remaining {
			text.Text = text.Text[:remaining]
		}
		remaining -= len(text.Text)
		out = append(out, text)
	}
	return out
}
