// Package config loads, merges, and normalizes supermcp's package
// configuration. Configuration is JSON by default (a document whose own path
// ends in .yaml or .yml is parsed as YAML; no sibling file is looked up),
// may reference further documents through a configPaths field, and may use
// either the native "mcpServers" envelope or a legacy flat form.
//
// Loading never fails the whole process for a single bad package descriptor:
// invalid descriptors are collected into a Skipped list and reported, while
// the rest of the configuration continues to load. Only structural problems
// — circular configPaths references, an unreadable or unparsable document,
// or an exceeded nesting depth — are fatal.
package config
