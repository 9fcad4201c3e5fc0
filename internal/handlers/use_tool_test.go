package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"supermcp/internal/catalog"
	"supermcp/internal/config"
)

func TestToolTimeoutForPrefersPackageOverride(t *testing.T) {
	pkgs := []*config.PackageDescriptor{{ID: "slow", Name: "slow", TimeoutMS: 5000}}
	h, _, _ := newTestHandlers(t, pkgs, config.SecurityConfig{})
	if got := h.toolTimeoutFor("slow"); got != 5*time.Second {
		t.Fatalf("expected package override of 5s, got %v", got)
	}
}

func TestToolTimeoutForFallsBackToConfigThenDefault(t *testing.T) {
	pkgs := []*config.PackageDescriptor{{ID: "fs", Name: "fs"}}
	h, _, _ := newTestHandlers(t, pkgs, config.SecurityConfig{})
	if got := h.toolTimeoutFor("fs"); got != DefaultConfig().ToolTimeout {
		t.Fatalf("expected default timeout, got %v", got)
	}
	if got := h.toolTimeoutFor("unknown"); got != DefaultConfig().ToolTimeout {
		t.Fatalf("expected default timeout for unknown package, got %v", got)
	}
}

func TestFindTool(t *testing.T) {
	entry := &catalog.Entry{
		PackageID: "fs",
		Status:    catalog.StatusReady,
		Tools: []catalog.Tool{
			{Name: "fs__read_file"},
			{Name: "fs__write_file"},
		},
	}
	if _, ok := findTool(entry, "fs__read_file"); !ok {
		t.Fatal("expected to find fs__read_file")
	}
	if _, ok := findTool(entry, "fs__delete_file"); ok {
		t.Fatal("did not expect to find fs__delete_file")
	}
}

func TestApplyOutputLimitNoTruncation(t *testing.T) {
	out := &UseToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "short"}}}
	applyOutputLimit(out, 1000)
	if out.Truncated {
		t.Fatal("did not expect truncation")
	}
	if out.Warning != "" {
		t.Fatalf("did not expect a warning, got %q", out.Warning)
	}
}

func TestApplyOutputLimitTruncatesAtCap(t *testing.T) {
	out := &UseToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: strings.Repeat("a", 100)}}}
	applyOutputLimit(out, 10)
	if !out.Truncated {
		t.Fatal("expected truncation")
	}
	if out.TruncatedChars != 90 {
		t.Fatalf("expected 90 truncated chars, got %d", out.TruncatedChars)
	}
	text, ok := out.Content[0].(mcp.TextContent)
	if !ok || len(text.Text) != 10 {
		t.Fatalf("expected content capped to 10 chars, got %+v", out.Content[0])
	}
}

func TestApplyOutputLimitWarnsWhenUncapped(t *testing.T) {
	out := &UseToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: strings.Repeat("a", noCapWarningThreshold+1)}}}
	applyOutputLimit(out, 0)
	if out.Truncated {
		t.Fatal("did not expect truncation when no cap is set")
	}
	if out.Warning == "" {
		t.Fatal("expected a warning banner for large uncapped output")
	}
}

func TestTruncateContentPreservesNonTextContent(t *testing.T) {
	img := mcp.ImageContent{Type: "image", Data: "base64data", MIMEType: "image/png"}
	content := []mcp.Content{mcp.TextContent{Type: "text", Text: "hello world"}, img}
	out := truncateContent(content, 5)
	if len(out) != 2 {
		t.Fatalf("expected 2 content items, got %d", len(out))
	}
	text, ok := out[0].(mcp.TextContent)
	if !ok || text.Text != "hello" {
		t.Fatalf("expected text truncated to 'hello', got %+v", out[0])
	}
	if out[1] != img {
		t.Fatalf("expected non-text content passed through unchanged, got %+v", out[1])
	}
}
