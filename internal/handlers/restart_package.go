package handlers

import "context"

// RestartPackageResult is restart_package's output.
type RestartPackageResult struct {
	PackageID   string
	Name        string
	Description string
	Status      string
}

// RestartPackage closes and re-creates a package's client, re-normalizing
// its descriptor from the current on-disk config, and discards its cached
// tool catalog so the next call reloads it fresh.
func (h *Handlers) RestartPackage(ctx context.Context, packageID string) (*RestartPackageResult, error) {
	desc, err := h.Registry.RestartPackage(ctx, packageID)
	if err != nil {
		return nil, classifyRegistryError(err)
	}
	h.Catalog.ClearPackage(packageID)
	return &RestartPackageResult{
		PackageID:   desc.ID,
		Name:        desc.Name,
		Description: desc.Description,
		Status:      "restarted",
	}, nil
}
