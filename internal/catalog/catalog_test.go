package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supermcp/internal/mcpclient"
)

type stubClient struct {
	tools     []mcp.Tool
	resources []mcp.Resource
	listErr   error
}

func (s *stubClient) PackageID() string                     { return "stub" }
func (s *stubClient) Connect(ctx context.Context) error     { return nil }
func (s *stubClient) Close(ctx context.Context) error       { return nil }
func (s *stubClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return s.tools, s.listErr
}
func (s *stubClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return nil, nil
}
func (s *stubClient) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	return s.resources, nil
}
func (s *stubClient) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	return nil, nil
}
func (s *stubClient) HealthCheck(ctx context.Context) mcpclient.HealthStatus {
	return mcpclient.HealthOK
}
func (s *stubClient) State() mcpclient.ConnectionState { return mcpclient.StateConnected }
func (s *stubClient) HasPendingRequests() bool         { return false }
func (s *stubClient) RequiresAuth() bool                { return false }

var _ mcpclient.Client = (*stubClient)(nil)

func TestEnsureLoaded_Success_NamespacesToolsAndBuildsHints(t *testing.T) {
	c := New()
	client := &stubClient{tools: []mcp.Tool{
		{
			Name:        "read_file",
			Description: "Reads a file from disk. Returns its contents.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"path": map[string]interface{}{"type": "string"},
				},
				Required: []string{"path"},
			},
		},
	}}

	entry, err := c.EnsureLoaded(context.Background(), "fs", client)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, entry.Status)
	require.Len(t, entry.Tools, 1)

	tool := entry.Tools[0]
	assert.Equal(t, "fs__read_file", tool.Name)
	assert.Equal(t, "Reads a file from disk", tool.Summary)
	assert.NotEmpty(t, tool.SchemaHash)
	assert.Equal(t, map[string]interface{}{"path": "<string>"}, tool.ArgsSkeleton)
}

func TestEnsureLoaded_AuthShapedFailure(t *testing.T) {
	c := New()
	client := &stubClient{listErr: errors.New("401 Unauthorized: token expired")}

	entry, err := c.EnsureLoaded(context.Background(), "gh", client)
	require.NoError(t, err)
	assert.Equal(t, StatusAuthRequired, entry.Status)
	assert.Empty(t, entry.Tools)
	assert.Contains(t, entry.LastError, "401")
}

func TestEnsureLoaded_GenericFailure(t *testing.T) {
	c := New()
	client := &stubClient{listErr: errors.New("connection reset by peer")}

	entry, err := c.EnsureLoaded(context.Background(), "gh", client)
	require.NoError(t, err)
	assert.Equal(t, StatusError, entry.Status)
}

func TestEnsureLoaded_NonReadyEntryNotRetriedWithinWindow(t *testing.T) {
	c := New()
	failing := &stubClient{listErr: errors.New("boom")}

	_, err := c.EnsureLoaded(context.Background(), "gh", failing)
	require.NoError(t, err)

	// Swap in a client that would succeed; since the retry window has not
	// elapsed, EnsureLoaded must still return the cached failing entry.
	succeeding := &stubClient{tools: []mcp.Tool{{Name: "t"}}}
	entry, err := c.EnsureLoaded(context.Background(), "gh", succeeding)
	require.NoError(t, err)
	assert.Equal(t, StatusError, entry.Status)
}

func TestClearPackage_ForcesImmediateReload(t *testing.T) {
	c := New()
	failing := &stubClient{listErr: errors.New("boom")}
	_, err := c.EnsureLoaded(context.Background(), "gh", failing)
	require.NoError(t, err)

	c.ClearPackage("gh")

	succeeding := &stubClient{tools: []mcp.Tool{{Name: "t"}}}
	entry, err := c.EnsureLoaded(context.Background(), "gh", succeeding)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, entry.Status)
}

func TestETag_ChangesWhenEntryChanges(t *testing.T) {
	c := New()
	client := &stubClient{tools: []mcp.Tool{{Name: "t"}}}

	before := c.ETag()
	_, err := c.EnsureLoaded(context.Background(), "gh", client)
	require.NoError(t, err)
	after := c.ETag()
	assert.NotEqual(t, before, after)

	stable := c.ETag()
	assert.Equal(t, after, stable, "ETag must be stable when nothing changed")
}

func TestResolveResource_LiteralPrefixThenUIFallback(t *testing.T) {
	c := New()
	c.RegisterResourcePrefix("custom://viewer", "pkg-a")

	pkgID, ok := c.ResolveResource("custom://viewer/app.html")
	require.True(t, ok)
	assert.Equal(t, "pkg-a", pkgID)

	pkgID, ok = c.ResolveResource("ui://pkg-b/widget.html")
	require.True(t, ok)
	assert.Equal(t, "pkg-b", pkgID)

	_, ok = c.ResolveResource("unknown://nope")
	assert.False(t, ok)
}

func TestEntry_NeedsRefresh(t *testing.T) {
	e := &Entry{Status: StatusError, LastUpdated: time.Now()}
	assert.False(t, e.needsRefresh(time.Now()))
	assert.True(t, e.needsRefresh(time.Now().Add(2*time.Minute)))

	ready := &Entry{Status: StatusReady, LastUpdated: time.Now().Add(-time.Hour)}
	assert.False(t, ready.needsRefresh(time.Now()))
}
