package mcpclient

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ConnectionState is the lifecycle state of one package's client instance.
type ConnectionState int

const (
	StateUnconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is the capability set the registry and catalog depend on,
// regardless of whether the underlying transport is stdio or HTTP. It is
// the "dynamic capability map" of the spec modeled as a Go interface: the
// two concrete implementations are a tagged sum over {Stdio, HTTP}.
type Client interface {
	// PackageID returns the owning package's id, for logging.
	PackageID() string

	// Connect performs the initial MCP handshake. It is safe to call only
	// once per client instance; the registry creates a fresh instance for
	// every (re)connect attempt.
	Connect(ctx context.Context) error

	// Close cancels the request queue and tears down the transport.
	// Pending and in-flight requests fail with ErrQueueClosed or a
	// transport-level cancellation error; Close never returns an error for
	// "already closed".
	Close(ctx context.Context) error

	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
	ListResources(ctx context.Context) ([]mcp.Resource, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)

	// HealthCheck reports ok/error/needs_auth via a Ping-equivalent round
	// trip. An HTTP client whose OAuth provider has no valid token reports
	// needs_auth without attempting the network call.
	HealthCheck(ctx context.Context) HealthStatus

	State() ConnectionState
	HasPendingRequests() bool

	// RequiresAuth reports whether this client needs an interactive
	// authentication step before it can be used (HTTP + oauth only).
	RequiresAuth() bool
}

// HealthStatus is the three-way health classification used throughout the
// registry and handlers.
type HealthStatus string

const (
	HealthOK        HealthStatus = "ok"
	HealthError     HealthStatus = "error"
	HealthNeedsAuth HealthStatus = "needs_auth"
)

// Authenticator is implemented by clients that support the interactive
// OAuth browser flow (HTTP clients configured with oauth=true). Handlers
// type-assert for it rather than widening Client for transports that never
// need it.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// SSEFallbackReporter is implemented by clients that can report whether
// transport negotiation fell back to HTTP+SSE.
type SSEFallbackReporter interface {
	UsedSSEFallback() bool
}
