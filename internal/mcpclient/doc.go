// Package mcpclient implements the two upstream MCP client transports this
// router speaks: a stdio client wrapping a spawned child process, and an
// HTTP client wrapping the streamable-HTTP transport with one-shot SSE
// fallback. Both transports are fronted by a per-client request queue
// (concurrency 1 for stdio, 5 for HTTP) so that dispatch invariants — pipe
// serialization for stdio, fairness for HTTP — hold regardless of how many
// concurrent callers the registry lets through.
package mcpclient
