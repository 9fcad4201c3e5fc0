// Package catalog caches each package's tool list, classifying load
// failures into auth_required/error states with a retry interval, exposing
// namespaced tool ids, content-addressable schema hashes, agent-facing
// argument skeletons, a process-wide ETag for cache invalidation, and a
// resource-URI-to-package lookup table.
package catalog
