package handlers

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReadResource resolves uri to its owning package via the catalog's
// scheme/authority prefix table, then forwards the read to that package's
// client.
func (h *Handlers) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	packageID, ok := h.Catalog.ResolveResource(uri)
	if !ok {
		return nil, newError(CodeResourceNotFound, "no package owns resource %q", uri)
	}

	client, err := h.Registry.GetClient(ctx, packageID)
	if err != nil {
		return nil, classifyRegistryError(err)
	}

	result, err := client.ReadResource(ctx, uri)
	if err != nil {
		if isMethodNotFound(err) {
			return nil, newError(CodeCapabilityNotSupported, "package %q does not support resources", packageID)
		}
		return nil, newError(CodeDownstreamError, "reading resource %q: %v", uri, err)
	}
	h.Catalog.ClearPackage(packageID)
	return result, nil
}

func isMethodNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "method not found") || strings.Contains(msg, "-32601")
}
