package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"supermcp/pkg/logging"
)

// refreshResources connects to every configured package, lists its
// resources and (re-)registers them on the MCP server: resources are only as
// fresh as the last refresh, and a package that cannot be reached simply
// contributes none this round.
//
// A single handler per resource delegates to handlers.ReadResource, which
// resolves the URI back to its owning package through the catalog's prefix
// table; the per-resource closure here only carries the URI to pass along.
func (s *Server) refreshResources(ctx context.Context) {
	var resources []mcp.Resource
	for _, pkg := range s.handlers.Registry.Packages() {
		client, err := s.handlers.Registry.GetClient(ctx, pkg.ID)
		if err != nil {
			continue
		}
		list, err := client.ListResources(ctx)
		if err != nil {
			continue
		}
		resources = append(resources, list...)
	}

	if len(resources) == 0 {
		return
	}

	server := s.mcpServer
	for _, r := range resources {
		uri := r.URI
		handler := func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			result, err := s.handlers.ReadResource(ctx, uri)
			if err != nil {
				return nil, err
			}
			return result.Contents, nil
		}
		server.AddResource(r, handler)
	}
	logging.Debug("server", "registered %d upstream resources", len(resources))
}
