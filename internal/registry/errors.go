package registry

import "fmt"

// PackageNotFoundError is returned by GetClient/RestartPackage for an id
// that is not (or no longer) present in the merged configuration.
type PackageNotFoundError struct {
	ID string
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("registry: package %q not found", e.ID)
}
