// Package handlers translates the MCP tool surface supermcp exposes to an
// agent (list_tool_packages, list_tools, use_tool, authenticate,
// restart_package, health_check[_all], search_tools, read_resource,
// get_help) into registry, catalog, and security policy operations.
//
// Handlers are stateless with respect to each other: every call synthesizes
// its effect fresh from the Handlers struct's registry/catalog/policy
// references. They operate on plain Go parameter and result types, not on
// mcp.CallToolRequest/Result directly — the server front end owns the MCP
// wire-protocol adaptation (argument decoding, JSON-RPC error codes).
package handlers
