package handlers

import (
	"context"

	"golang.org/x/sync/errgroup"

	"supermcp/internal/mcpclient"
)

// HealthCheckResult is one package's health_check outcome.
type HealthCheckResult struct {
	PackageID string
	Status    string // "ok" | "error" | "unavailable"
}

// mapHealthStatus maps a client's three-way HealthStatus onto the
// handler-facing vocabulary: a client that needs interactive OAuth is
// reported unavailable, not error, since nothing is actually broken.
func mapHealthStatus(status mcpclient.HealthStatus) string {
	switch status {
	case mcpclient.HealthOK:
		return "ok"
	case mcpclient.HealthNeedsAuth:
		return "unavailable"
	default:
		return "error"
	}
}

// HealthCheck runs a single package's health check.
func (h *Handlers) HealthCheck(ctx context.Context, packageID string) (*HealthCheckResult, error) {
	client, err := h.Registry.GetClient(ctx, packageID)
	if err != nil {
		return nil, classifyRegistryError(err)
	}
	return h.healthCheckClient(ctx, packageID, client), nil
}

func (h *Handlers) healthCheckClient(ctx context.Context, packageID string, client mcpclient.Client) *HealthCheckResult {
	status := mapHealthStatus(client.HealthCheck(ctx))
	if status == "ok" {
		h.Catalog.ClearPackage(packageID)
	}
	return &HealthCheckResult{PackageID: packageID, Status: status}
}

// HealthCheckAllResult is health_check_all's output.
type HealthCheckAllResult struct {
	Results []HealthCheckResult
}

// HealthCheckAll runs every configured package's health check concurrently,
// bounded by the same fan-out limit as list_tool_packages.
func (h *Handlers) HealthCheckAll(ctx context.Context) (*HealthCheckAllResult, error) {
	packages := h.Registry.Packages()
	results := make([]HealthCheckResult, len(packages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.fanOutLimit())
	for i, pkg := range packages {
		i, pkg := i, pkg
		g.Go(func() error {
			client, err := h.Registry.GetClient(gctx, pkg.ID)
			if err != nil {
				results[i] = HealthCheckResult{PackageID: pkg.ID, Status: "error"}
				return nil
			}
			results[i] = *h.healthCheckClient(gctx, pkg.ID, client)
			return nil
		})
	}
	_ = g.Wait()

	return &HealthCheckAllResult{Results: results}, nil
}
