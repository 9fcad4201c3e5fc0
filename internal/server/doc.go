// Package server is the MCP surface supermcp exposes to an agent: it wraps
// internal/handlers' operations as mcp-go tools and resources and serves
// them over stdio or HTTP (Streamable HTTP only; no SSE endpoint is served),
// plus the plain HTTP side channels (/health, /api/tools) spec.md §4.11
// names. Wire-protocol framing itself is mcp-go's concern; this package
// only adapts handlers.Handlers to mcp-go's registration API.
package server
