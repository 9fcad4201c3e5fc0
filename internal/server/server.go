package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"supermcp/internal/handlers"
	"supermcp/pkg/logging"
)

// Transport selects how Server exposes its MCP surface to the agent.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Config bundles the front-end options cmd/ fills in from flags/env.
type Config struct {
	Transport Transport
	Addr      string // host:port, used when Transport is TransportHTTP
	Version   string
}

// Server is the MCP surface supermcp exposes to an agent: one mcp-go
// MCPServer with every handlers.Handlers operation registered as a tool,
// served over stdio or Streamable HTTP, plus the plain HTTP side channels
// (/health, /api/tools) alongside /mcp itself.
type Server struct {
	cfg       Config
	handlers  *handlers.Handlers
	mcpServer *mcpserver.MCPServer

	httpServer  *http.Server
	stdioServer *mcpserver.StdioServer
}

// New builds a Server. It does not start listening; call Serve for that.
func New(h *handlers.Handlers, cfg Config) *Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	mcpSrv := mcpserver.NewMCPServer(
		"supermcp",
		cfg.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
	)
	s := &Server{cfg: cfg, handlers: h, mcpServer: mcpSrv}
	mcpSrv.AddTools(s.registerTools()...)
	return s
}

// Serve starts the configured transport and blocks until ctx is cancelled
// or the transport fails. The resource catalog is refreshed once up front;
// callers that want it kept fresh should call RefreshResources on their own
// schedule (list_tool_packages and use_tool already keep the tool catalog
// current as a side effect of normal use).
func (s *Server) Serve(ctx context.Context) error {
	s.refreshResources(ctx)

	switch s.cfg.Transport {
	case TransportStdio:
		return s.serveStdio(ctx)
	default:
		return s.serveHTTP(ctx)
	}
}

func (s *Server) serveStdio(ctx context.Context) error {
	logging.Info("server", "starting supermcp on stdio")
	s.stdioServer = mcpserver.NewStdioServer(s.mcpServer)
	return s.stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serveHTTP(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:8585"
	}
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer)
	mux := s.createMux(streamable)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	logging.Info("server", "starting supermcp on http://%s/mcp", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// RefreshResources re-lists every upstream package's resources and
// re-registers them on the MCP server.
func (s *Server) RefreshResources(ctx context.Context) {
	s.refreshResources(ctx)
}

// Endpoint reports the URL (or "stdio") an agent would connect to.
func (s *Server) Endpoint() string {
	if s.cfg.Transport == TransportStdio {
		return "stdio"
	}
	addr := s.cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:8585"
	}
	return fmt.Sprintf("http://%s/mcp", addr)
}
