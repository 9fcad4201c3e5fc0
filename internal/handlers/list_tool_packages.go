package handlers

import (
	"context"

	"golang.org/x/sync/errgroup"

	"supermcp/internal/catalog"
	"supermcp/internal/config"
	"supermcp/internal/mcpclient"
)

// PackageView is one package as reported by list_tool_packages.
type PackageView struct {
	ID          string
	Name        string
	Description string
	Transport   string
	Status      string
	Health      string
	LastError   string
	ToolCount   int
}

// ListToolPackagesParams is list_tool_packages' input.
type ListToolPackagesParams struct {
	IncludeHealthCheck bool
}

// ListToolPackagesResult is list_tool_packages' output.
type ListToolPackagesResult struct {
	Packages []PackageView
	ETag     string
}

// ListToolPackages connects to (or reuses) every visible (non-hidden) package's
// client, ensures its tool catalog is loaded, and optionally runs a health
// check, fanning out with bounded concurrency so one slow upstream does not
// serialize the whole listing.
func (h *Handlers) ListToolPackages(ctx context.Context, params ListToolPackagesParams) (*ListToolPackagesResult, error) {
	var packages []*config.PackageDescriptor
	for _, pkg := range h.Registry.Packages() {
		if pkg.Visibility == config.VisibilityHidden {
			continue
		}
		packages = append(packages, pkg)
	}
	views := make([]PackageView, len(packages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.fanOutLimit())
	for i, pkg := range packages {
		i, pkg := i, pkg
		g.Go(func() error {
			views[i] = h.loadPackageView(gctx, pkg, params.IncludeHealthCheck)
			return nil
		})
	}
	_ = g.Wait() // per-package failures are recorded in the view, never propagated

	return &ListToolPackagesResult{Packages: views, ETag: h.Catalog.ETag()}, nil
}

func (h *Handlers) loadPackageView(ctx context.Context, pkg *config.PackageDescriptor, includeHealth bool) PackageView {
	view := PackageView{
		ID:          pkg.ID,
		Name:        pkg.Name,
		Description: pkg.Description,
		Transport:   string(pkg.Transport),
		Status:      string(catalog.StatusError),
	}

	client, err := h.Registry.GetClient(ctx, pkg.ID)
	if err != nil {
		view.LastError = err.Error()
		return view
	}

	entry, err := h.Catalog.EnsureLoaded(ctx, pkg.ID, client)
	if err != nil {
		view.LastError = err.Error()
		return view
	}
	view.Status = string(entry.Status)
	view.LastError = entry.LastError
	view.ToolCount = len(entry.Tools)

	if includeHealth {
		health := client.HealthCheck(ctx)
		view.Health = mapHealthStatus(health)
		if health == mcpclient.HealthOK {
			h.Catalog.ClearPackage(pkg.ID)
		}
	}
	return view
}
