package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supermcp/internal/config"
	"supermcp/internal/mcpclient"
	"supermcp/internal/oauthprovider"
)

// fakeClient is a hand-rolled mcpclient.Client double so registry behavior
// (single-flight coalescing, health-triggered discard, idle reaping) can be
// asserted without spawning real processes or servers.
type fakeClient struct {
	id         string
	connectErr error
	closed     int32
	health     mcpclient.HealthStatus
	pending    int32
}

func (f *fakeClient) PackageID() string { return f.id }
func (f *fakeClient) Connect(ctx context.Context) error {
	return f.connectErr
}
func (f *fakeClient) Close(ctx context.Context) error {
	atomic.StoreInt32(&f.closed, 1)
	return nil
}
func (f *fakeClient) ListTools(ctx context.Context) ([]mcp.Tool, error) { return nil, nil }
func (f *fakeClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return nil, nil
}
func (f *fakeClient) ListResources(ctx context.Context) ([]mcp.Resource, error) { return nil, nil }
func (f *fakeClient) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	return nil, nil
}
func (f *fakeClient) HealthCheck(ctx context.Context) mcpclient.HealthStatus {
	if f.health == "" {
		return mcpclient.HealthOK
	}
	return f.health
}
func (f *fakeClient) State() mcpclient.ConnectionState { return mcpclient.StateConnected }
func (f *fakeClient) HasPendingRequests() bool         { return atomic.LoadInt32(&f.pending) > 0 }
func (f *fakeClient) RequiresAuth() bool                { return false }

var _ mcpclient.Client = (*fakeClient)(nil)

func newTestRegistry(t *testing.T, pkgs ...*config.PackageDescriptor) *Registry {
	t.Helper()
	merged := &config.MergedConfig{Packages: pkgs}
	return New(merged, nil, nil, "", 0)
}

func TestGetClient_PackageNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.GetClient(context.Background(), "missing")
	require.Error(t, err)
	var notFound *PackageNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRegistry_Packages_PreservesOrder(t *testing.T) {
	a := &config.PackageDescriptor{ID: "a", Transport: config.TransportStdio, Command: "/bin/true"}
	b := &config.PackageDescriptor{ID: "b", Transport: config.TransportStdio, Command: "/bin/true"}
	r := newTestRegistry(t, a, b)
	got := r.Packages()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestRegistry_Skipped_CarriesThroughFromMergedConfig(t *testing.T) {
	merged := &config.MergedConfig{Skipped: []config.SkippedPackage{{ID: "bad", Reason: "no command"}}}
	r := New(merged, nil, nil, "", 0)
	got := r.Skipped()
	require.Len(t, got, 1)
	assert.Equal(t, "bad", got[0].ID)
}

func TestIsAuthLikeError(t *testing.T) {
	assert.True(t, isAuthLikeError(&oauthprovider.AuthRequiredError{PackageID: "x"}))
	assert.True(t, isAuthLikeError(&oauthprovider.UnauthorizedError{PackageID: "x"}))
	assert.True(t, isAuthLikeError(&oauthprovider.InvalidTokenError{PackageID: "x"}))
	assert.False(t, isAuthLikeError(errors.New("connection refused")))
}

func TestSweep_ReapsIdleStdioClient_NotHTTP(t *testing.T) {
	r := newTestRegistry(t)
	r.idleThreshold = 10 * time.Millisecond

	stdioClient := &fakeClient{id: "stdio-pkg"}
	httpClient := &fakeClient{id: "http-pkg"}

	r.mu.Lock()
	r.packages["stdio-pkg"] = &config.PackageDescriptor{ID: "stdio-pkg", Transport: config.TransportStdio}
	r.packages["http-pkg"] = &config.PackageDescriptor{ID: "http-pkg", Transport: config.TransportHTTP}
	r.clients["stdio-pkg"] = stdioClient
	r.clients["http-pkg"] = httpClient
	r.lastActivity["stdio-pkg"] = time.Now().Add(-time.Hour)
	// http-pkg deliberately has no lastActivity entry, per spec (HTTP clients
	// are never tracked for idle reaping).
	r.mu.Unlock()

	r.sweep()

	r.mu.Lock()
	_, stdioStillPresent := r.clients["stdio-pkg"]
	_, httpStillPresent := r.clients["http-pkg"]
	r.mu.Unlock()

	assert.False(t, stdioStillPresent, "idle stdio client should have been reaped")
	assert.True(t, httpStillPresent, "http client must never be reaped by the idle sweep")
	assert.Equal(t, int32(1), atomic.LoadInt32(&stdioClient.closed))
	assert.Equal(t, int32(0), atomic.LoadInt32(&httpClient.closed))
}

func TestSweep_NeverReapsClientWithPendingRequests(t *testing.T) {
	r := newTestRegistry(t)
	r.idleThreshold = 10 * time.Millisecond

	busy := &fakeClient{id: "busy-pkg", pending: 1}
	r.mu.Lock()
	r.packages["busy-pkg"] = &config.PackageDescriptor{ID: "busy-pkg", Transport: config.TransportStdio}
	r.clients["busy-pkg"] = busy
	r.lastActivity["busy-pkg"] = time.Now().Add(-time.Hour)
	r.mu.Unlock()

	r.sweep()

	r.mu.Lock()
	_, stillPresent := r.clients["busy-pkg"]
	r.mu.Unlock()
	assert.True(t, stillPresent, "busy client must never be reaped")
	assert.Equal(t, int32(0), atomic.LoadInt32(&busy.closed))
}

func TestStartStopReaper_Idempotent(t *testing.T) {
	r := newTestRegistry(t)
	r.idleThreshold = time.Hour
	r.StartReaper()
	r.StartReaper() // second call must be a no-op, not a second goroutine
	r.StopReaper()
	r.StopReaper() // must not panic or block
}

func TestStartReaper_NoopWhenThresholdZero(t *testing.T) {
	r := newTestRegistry(t)
	r.StartReaper()
	r.mu.Lock()
	started := r.reaperStop != nil
	r.mu.Unlock()
	assert.False(t, started)
	r.StopReaper()
}

func TestCloseAll_ClosesEveryClientConcurrently(t *testing.T) {
	r := newTestRegistry(t)
	var clients []*fakeClient
	r.mu.Lock()
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		c := &fakeClient{id: id}
		clients = append(clients, c)
		r.clients[id] = c
	}
	r.mu.Unlock()

	r.CloseAll(context.Background())

	for _, c := range clients {
		assert.Equal(t, int32(1), atomic.LoadInt32(&c.closed))
	}
	r.mu.Lock()
	assert.Empty(t, r.clients)
	r.mu.Unlock()
}

func TestRemoveID(t *testing.T) {
	got := removeID([]string{"a", "b", "c"}, "b")
	assert.Equal(t, []string{"a", "c"}, got)
}
