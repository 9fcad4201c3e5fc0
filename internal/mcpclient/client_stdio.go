package mcpclient

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"supermcp/pkg/logging"
)

const defaultStdioInitTimeout = 10 * time.Second

// StdioClient spawns its upstream as a child process and speaks MCP
// JSON-RPC over its stdin/stdout. All requests are serialized through a
// concurrency-1 Queue: the pipe has exactly one reader and one writer, and
// interleaving requests would corrupt JSON-RPC framing.
type StdioClient struct {
	packageID string
	command   string
	args      []string
	env       map[string]string
	cwd       string

	mu    sync.RWMutex
	inner *client.Client
	state ConnectionState
	pid   int

	queue *Queue
}

// NewStdioClient builds (but does not yet connect) a stdio client for the
// given package.
func NewStdioClient(packageID, command string, args []string, env map[string]string, cwd string) *StdioClient {
	return &StdioClient{
		packageID: packageID,
		command:   command,
		args:      args,
		env:       env,
		cwd:       cwd,
		state:     StateUnconnected,
		queue:     NewQueue(1),
	}
}

func (c *StdioClient) PackageID() string { return c.packageID }

func mergedEnv(extra map[string]string) []string {
	merged := os.Environ()
	for k, v := range extra {
		merged = append(merged, fmt.Sprintf("%s=%s", k, v))
	}
	return merged
}

// Connect spawns the child process and performs the MCP initialize
// handshake.
func (c *StdioClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateConnecting
	c.mu.Unlock()

	inner, err := client.NewStdioMCPClient(c.command, mergedEnv(c.env), c.args...)
	if err != nil {
		c.mu.Lock()
		c.state = StateUnconnected
		c.mu.Unlock()
		return fmt.Errorf("mcpclient: spawning %q: %w", c.command, err)
	}

	initCtx, cancel := context.WithTimeout(ctx, defaultStdioInitTimeout)
	defer cancel()

	if _, err := inner.Initialize(initCtx, mcp.InitializeRequest{}); err != nil {
		inner.Close()
		c.mu.Lock()
		c.state = StateUnconnected
		c.mu.Unlock()
		return fmt.Errorf("mcpclient: initializing %q: %w", c.packageID, err)
	}

	c.mu.Lock()
	c.inner = inner
	c.state = StateConnected
	c.pid = stdioClientPID(inner)
	c.mu.Unlock()
	return nil
}

// stdioClientPID returns the child process id for the process-tree close
// protocol. mcp-go does not expose the *exec.Cmd, so it always returns 0.
func stdioClientPID(_ *client.Client) int {
	return 0
}

// Close clears the queue, kills the child's process tree leaves-first when
// a pid is known (killing the parent first on Unix would reparent its
// descendants to pid 1, out of reach of the parent-of walk), and then closes
// the transport. Because stdioClientPID always returns 0, the tree kill does
// not run and only the transport's own Close stops the child.
func (c *StdioClient) Close(ctx context.Context) error {
	c.queue.Clear()

	c.mu.Lock()
	pid := c.pid
	inner := c.inner
	c.state = StateClosed
	c.mu.Unlock()

	if pid > 0 {
		if err := killProcessTree(pid); err != nil {
			logging.Warn("mcpclient", "process-tree kill for package %q (pid %d) reported: %v", c.packageID, pid, err)
		}
	}

	if inner == nil {
		return nil
	}
	return inner.Close()
}

func (c *StdioClient) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *StdioClient) HasPendingRequests() bool {
	return c.queue.HasPendingRequests()
}

func (c *StdioClient) RequiresAuth() bool { return false }

func (c *StdioClient) do(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return c.queue.Submit(ctx, fn)
}

func (c *StdioClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	result, err := c.do(ctx, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		inner := c.inner
		c.mu.RUnlock()
		return inner.ListTools(ctx, mcp.ListToolsRequest{})
	})
	if err != nil {
		return nil, err
	}
	return result.(*mcp.ListToolsResult).Tools, nil
}

func (c *StdioClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
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
		return nil, err
	}
	return result.(*mcp.CallToolResult), nil
}

func (c *StdioClient) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	result, err := c.do(ctx, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		inner := c.inner
		c.mu.RUnlock()
		return inner.ListResources(ctx, mcp.ListResourcesRequest{})
	})
	if err != nil {
		return nil, err
	}
	return result.(*mcp.ListResourcesResult).Resources, nil
}

func (c *StdioClient) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	result, err := c.do(ctx, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		inner := c.inner
		c.mu.RUnlock()
		req := mcp.ReadResourceRequest{}
		req.Params.URI = uri
		return inner.ReadResource(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*mcp.ReadResourceResult), nil
}

func (c *StdioClient) HealthCheck(ctx context.Context) HealthStatus {
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

var _ Client = (*StdioClient)(nil)
