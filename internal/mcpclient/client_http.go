package mcpclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"supermcp/internal/oauthprovider"
)

const defaultHTTPConnectTimeout = 30 * time.Second

// fallbackTriggers are the upstream failure messages that indicate a
// server only speaks the older HTTP+SSE transport, not Streamable HTTP.
var fallbackTriggers = []string{
	"Missing sessionId parameter",
	"HTTP 404",
	"405 Method Not Allowed",
}

// shouldFallbackToSSE decides whether a connect failure should trigger a
// one-time rebuild of the transport as HTTP+SSE. It is a pure function so
// the negotiation decision is testable without a real transport.
func shouldFallbackToSSE(err error, alreadyFellBack bool) bool {
	if err == nil || alreadyFellBack {
		return false
	}
	msg := err.Error()
	for _, trigger := range fallbackTriggers {
		if strings.Contains(msg, trigger) {
			return true
		}
	}
	return false
}

// HTTPClient wraps the MCP streamable-HTTP or HTTP+SSE transports behind a
// bounded-concurrency queue, with one-shot SSE fallback negotiation and
// OAuth provider wiring.
type HTTPClient struct {
	packageID      string
	baseURL        string
	headers        map[string]string
	forceSSE       bool
	connectTimeout time.Duration

	oauthEnabled bool
	fullFlow     *oauthprovider.FullFlowProvider
	refreshOnly  *oauthprovider.RefreshOnlyProvider
	activeOAuth  oauthprovider.Provider

	mu              sync.RWMutex
	inner           *client.Client
	state           ConnectionState
	usedSSEFallback bool

	queue *Queue
}

// HTTPClientOption configures an HTTPClient at construction.
type HTTPClientOption func(*HTTPClient)

// WithForceSSE forces the initial attempt to use HTTP+SSE rather than
// Streamable HTTP, per a package descriptor's explicit http_subtype.
func WithForceSSE() HTTPClientOption {
	return func(c *HTTPClient) { c.forceSSE = true }
}

// WithConnectTimeout overrides the default 30s connect timeout.
func WithConnectTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) { c.connectTimeout = d }
}

// WithOAuth attaches the package's OAuth providers. The refresh-only
// provider is used for passive operations and the full-flow provider is
// attached explicitly on authenticate().
func WithOAuth(full *oauthprovider.FullFlowProvider, refreshOnly *oauthprovider.RefreshOnlyProvider) HTTPClientOption {
	return func(c *HTTPClient) {
		c.oauthEnabled = true
		c.fullFlow = full
		c.refreshOnly = refreshOnly
		c.activeOAuth = refreshOnly
	}
}

// NewHTTPClient builds (but does not yet connect) an HTTP client for the
// given package.
func NewHTTPClient(packageID, baseURL string, headers map[string]string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		packageID:      packageID,
		baseURL:        baseURL,
		headers:        headers,
		connectTimeout: connectTimeoutOrDefault(),
		state:          StateUnconnected,
		queue:          NewQueue(5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) PackageID() string { return c.packageID }

func (c *HTTPClient) RequiresAuth() bool {
	if !c.oauthEnabled {
		return false
	}
	_, err := c.activeOAuth.AccessToken(context.Background())
	var authErr *oauthprovider.AuthRequiredError
	return err != nil && isAuthRequired(err, &authErr)
}

func isAuthRequired(err error, target **oauthprovider.AuthRequiredError) bool {
	ae, ok := err.(*oauthprovider.AuthRequiredError)
	if ok {
		*target = ae
	}
	return ok
}

// Connect builds the underlying mcp-go transport, attempting Streamable
// HTTP first (unless forced to SSE), and retrying exactly once as SSE if
// the failure matches one of the known legacy-only-server signatures.
func (c *HTTPClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateConnecting
	c.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	useSSE := c.forceSSE
	err := c.connectOnce(connectCtx, useSSE)
	if shouldFallbackToSSE(err, useSSE) {
		c.mu.Lock()
		c.usedSSEFallback = true
		c.mu.Unlock()
		err = c.connectOnce(connectCtx, true)
	}

	c.mu.Lock()
	if err != nil {
		c.state = StateUnconnected
	} else {
		c.state = StateConnected
	}
	c.mu.Unlock()
	return err
}

func (c *HTTPClient) connectOnce(ctx context.Context, useSSE bool) error {
	headerFunc := func(ctx context.Context) map[string]string {
		headers := make(map[string]string, len(c.headers)+1)
		for k, v := range c.headers {
			headers[k] = v
		}
		if c.oauthEnabled {
			if token, err := c.activeOAuth.AccessToken(ctx); err == nil && token != "" {
				headers["Authorization"] = "Bearer " + token
			}
		}
		return headers
	}

	var inner *client.Client
	var err error
	if useSSE {
		inner, err = client.NewSSEMCPClient(c.baseURL, transport.WithHTTPHeaderFunc(headerFunc))
	} else {
		inner, err = client.NewStreamableHttpClient(c.baseURL, transport.WithHTTPHeaderFunc(headerFunc))
	}
	if err != nil {
		return fmt.Errorf("mcpclient: building transport for %q: %w", c.packageID, err)
	}

	if _, err := inner.Initialize(ctx, mcp.InitializeRequest{}); err != nil {
		inner.Close()
		if statusErr := classifyHTTPError(err); statusErr != nil {
			return c.wrapAuthError(statusErr)
		}
		return err
	}

	c.mu.Lock()
	c.inner = inner
	c.mu.Unlock()
	return nil
}

// classifyHTTPError picks out the auth-related connect failures: a "Client
// ID mismatch" message becomes an oauthClientIDMismatchError, a
// 401/Unauthorized error is returned unchanged, and anything else yields
// nil. connectOnce passes the result through wrapAuthError, so the caller
// sees an InvalidTokenError or an UnauthorizedError naming the package.
// Stored credentials are not invalidated on a client id mismatch.
func classifyHTTPError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "Client ID mismatch") {
		return &oauthClientIDMismatchError{msg: msg}
	}
	if strings.Contains(msg, "401") || strings.Contains(strings.ToLower(msg), "unauthorized") {
		return err
	}
	return nil
}

type oauthClientIDMismatchError struct{ msg string }

func (e *oauthClientIDMismatchError) Error() string { return e.msg }

func (c *HTTPClient) UsedSSEFallback() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.usedSSEFallback
}

// Authenticate attaches the full-flow provider and runs the interactive
// browser authorization. On success it switches back to the refresh-only
// provider for subsequent silent operation.
func (c *HTTPClient) Authenticate(ctx context.Context) error {
	if !c.oauthEnabled {
		return fmt.Errorf("mcpclient: package %q is not configured for oauth", c.packageID)
	}
	c.mu.Lock()
	c.activeOAuth = c.fullFlow
	c.mu.Unlock()

	if err := c.fullFlow.Authenticate(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.activeOAuth = c.refreshOnly
	c.mu.Unlock()
	return c.finishOAuth(ctx)
}

// finishOAuth discards the half-started transport and client and rebuilds
// fresh ones that will pick up the now-persisted tokens on their first
// request.
func (c *HTTPClient) finishOAuth(ctx context.Context) error {
	c.mu.Lock()
	if c.inner != nil {
		c.inner.Close()
		c.inner = nil
	}
	c.mu.Unlock()
	return c.Connect(ctx)
}

func (c *HTTPClient) Close(ctx context.Context) error {
	c.queue.Clear()
	c.mu.Lock()
	inner := c.inner
	c.state = StateClosed
	c.mu.Unlock()
	if inner == nil {
		return nil
	}
	return inner.Close()
}

func (c *HTTPClient) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *HTTPClient) HasPendingRequests() bool {
	return c.queue.HasPendingRequests()
}

func (c *HTTPClient) do(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return c.queue.Submit(ctx, fn)
}

func (c *HTTPClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	result, err := c.do(ctx, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		inner := c.inner
		c.mu.RUnlock()
		return inner.ListTools(ctx, mcp.ListToolsRequest{})
	})
	if err != nil {
		return nil, c.wrapAuthError(err)
	}
	return result.(*mcp.ListToolsResult).Tools, nil
}

func (c *HTTPClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	result, err := c.do(ctx, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		inner := c.inner
		c.mu.RUnlock()
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args
		return inner.CallTool(ctx, req)
	})
	if err != nil {
		return nil, c.wrapAuthError(err)
	}
	return result.(*mcp.CallToolResult), nil
}

func (c *HTTPClient) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	result, err := c.do(ctx, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		inner := c.inner
		c.mu.RUnlock()
		return inner.ListResources(ctx, mcp.ListResourcesRequest{})
	})
	if err != nil {
		return nil, c.wrapAuthError(err)
	}
	return result.(*mcp.ListResourcesResult).Resources, nil
}

func (c *HTTPClient) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	result, err := c.do(ctx, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		inner := c.inner
		c.mu.RUnlock()
		req := mcp.ReadResourceRequest{}
		req.Params.URI = uri
		return inner.ReadResource(ctx, req)
	})
	if err != nil {
		return nil, c.wrapAuthError(err)
	}
	return result.(*mcp.ReadResourceResult), nil
}

func (c *HTTPClient) wrapAuthError(err error) error {
	if _, ok := err.(*oauthClientIDMismatchError); ok {
		return &oauthprovider.InvalidTokenError{PackageID: c.packageID}
	}
	msg := err.Error()
	if strings.Contains(msg, "401") || strings.Contains(strings.ToLower(msg), "unauthorized") {
		return &oauthprovider.UnauthorizedError{PackageID: c.packageID}
	}
	return err
}

func (c *HTTPClient) HealthCheck(ctx context.Context) HealthStatus {
	if c.RequiresAuth() {
		return HealthNeedsAuth
	}
	_, err := c.do(ctx, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		inner := c.inner
		c.mu.RUnlock()
		return nil, inner.Ping(ctx)
	})
	if err != nil {
		return HealthError
	}
	return HealthOK
}

var _ Client = (*HTTPClient)(nil)
