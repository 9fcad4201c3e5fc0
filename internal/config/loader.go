package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"supermcp/pkg/logging"
)

const maxConfigDepth = 20

var knownTopLevelKeys = map[string]bool{
	"mcpServers":                true,
	"packages":                  true,
	"configPaths":               true,
	"security":                  true,
	"userDisabledToolsByServer": true,
	"disabledServers":           true,
}

// accumulator collects merged state across every document visited while
// walking the configPaths graph.
type accumulator struct {
	order       []string
	byID        map[string]*PackageDescriptor
	security    SecurityConfig
	userDisable map[string][]string
	disabled    map[string]bool
	skipped     []SkippedPackage
	warnings    []string
}

func newAccumulator() *accumulator {
	return &accumulator{
		byID:        make(map[string]*PackageDescriptor),
		userDisable: make(map[string][]string),
		disabled:    make(map[string]bool),
	}
}

func (a *accumulator) putPackage(id string, desc *PackageDescriptor) {
	if _, exists := a.byID[id]; exists {
		a.warnings = append(a.warnings, fmt.Sprintf("package %q redefined; later definition wins", id))
	} else {
		a.order = append(a.order, id)
	}
	a.byID[id] = desc
}

func (a *accumulator) skip(id, reason string) {
	a.skipped = append(a.skipped, SkippedPackage{ID: id, Reason: reason})
	logging.Warn("config", "skipping package %q: %s", id, reason)
}

func (a *accumulator) mergeSecurity(s SecurityConfig) {
	a.security.BlockedTools = append(a.security.BlockedTools, s.BlockedTools...)
	a.security.BlockedPackages = append(a.security.BlockedPackages, s.BlockedPackages...)
	a.security.AllowedTools = append(a.security.AllowedTools, s.AllowedTools...)
	a.security.AllowedPackages = append(a.security.AllowedPackages, s.AllowedPackages...)
	if s.LogBlockedAttempts {
		a.security.LogBlockedAttempts = true
	}
}

func (a *accumulator) mergeUserDisabled(m map[string][]string) {
	for server, tools := range m {
		existing := a.userDisable[server]
		seen := make(map[string]bool, len(existing))
		for _, t := range existing {
			seen[t] = true
		}
		for _, t := range tools {
			if !seen[t] {
				existing = append(existing, t)
				seen[t] = true
			}
		}
		a.userDisable[server] = existing
	}
}

func (a *accumulator) mergeDisabledServers(ids []string) {
	for _, id := range ids {
		a.disabled[id] = true
	}
}

func (a *accumulator) finalize() *MergedConfig {
	packages := make([]*PackageDescriptor, 0, len(a.order))
	for _, id := range a.order {
		if a.disabled[id] {
			continue
		}
		packages = append(packages, a.byID[id])
	}
	return &MergedConfig{
		Packages:                  packages,
		Security:                  a.security,
		UserDisabledToolsByServer: a.userDisable,
		DisabledServers:           a.disabled,
		Skipped:                   a.skipped,
		Warnings:                  a.warnings,
	}
}

// Load reads every root path in order, recursively following configPaths
// references, merges the results, and normalizes each package entry.
// A structural failure (unreadable file, malformed document, circular
// reference, exceeded nesting depth) aborts loading and returns a
// *LoadError before any package is returned. Invalid individual package
// entries are instead collected in the result's Skipped field.
func Load(rootPaths []string) (*MergedConfig, error) {
	acc := newAccumulator()
	var stack []string
	for _, p := range rootPaths {
		if err := loadOne(p, stack, 0, acc); err != nil {
			return nil, err
		}
	}
	return acc.finalize(), nil
}

func loadOne(path string, stack []string, depth int, acc *accumulator) error {
	if depth > maxConfigDepth {
		return &LoadError{Path: path, Err: fmt.Errorf("max config nesting depth (%d) exceeded", maxConfigDepth)}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	for _, seen := range stack {
		if seen == abs {
			return &LoadError{Path: path, Err: fmt.Errorf("circular configPaths reference: %s already being loaded", abs)}
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}

	doc, order, err := parseDocument(data, abs)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}

	applyDocument(doc, order, acc)

	dir := filepath.Dir(abs)
	nextStack := append(append([]string{}, stack...), abs)
	for _, ref := range doc.ConfigPaths {
		refPath := ref
		if !filepath.IsAbs(refPath) {
			refPath = filepath.Join(dir, refPath)
		}
		if err := loadOne(refPath, nextStack, depth+1, acc); err != nil {
			return err
		}
	}
	return nil
}

func applyDocument(doc *Document, order []string, acc *accumulator) {
	for _, id := range order {
		raw, ok := doc.MCPServers[id]
		if !ok {
			continue
		}
		desc, reason := normalizeServer(id, raw)
		if reason != "" {
			acc.skip(id, reason)
			continue
		}
		acc.putPackage(id, desc)
	}
	for _, raw := range doc.Packages {
		if raw.ID == "" {
			acc.skip("", "legacy package list entry missing \"id\"")
			continue
		}
		desc, reason := normalizeServer(raw.ID, raw)
		if reason != "" {
			acc.skip(raw.ID, reason)
			continue
		}
		acc.putPackage(raw.ID, desc)
	}
	acc.mergeSecurity(doc.Security)
	acc.mergeUserDisabled(doc.UserDisabledToolsByServer)
	acc.mergeDisabledServers(doc.DisabledServers)
}

// parseDocument decodes a config document in either JSON or YAML, handling
// the native "mcpServers" envelope and the two legacy shapes: a top-level
// "packages" array entry carrying "id" fields (handled by Document itself),
// and a top-level object whose keys are themselves server entries with no
// wrapper at all.
func parseDocument(data []byte, path string) (*Document, []string, error) {
	if isYAMLPath(path) {
		return parseYAMLDocument(data)
	}
	return parseJSONDocument(data)
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func parseJSONDocument(data []byte) (*Document, []string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []ServerConfig
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, nil, fmt.Errorf("parsing legacy package list: %w", err)
		}
		doc := &Document{Packages: list}
		return doc, nil, nil
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing config document: %w", err)
	}

	order, err := orderedObjectKeys(trimmed, "mcpServers")
	if err != nil {
		return nil, nil, err
	}

	if len(doc.MCPServers) == 0 && len(doc.Packages) == 0 {
		flatOrder, flatServers, err := extractFlatLegacyServers(trimmed)
		if err != nil {
			return nil, nil, err
		}
		if len(flatServers) > 0 {
			doc.MCPServers = flatServers
			order = flatOrder
		}
	}

	return &doc, order, nil
}

func parseYAMLDocument(data []byte) (*Document, []string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '-' {
		var list []ServerConfig
		if err := yaml.Unmarshal(trimmed, &list); err != nil {
			return nil, nil, fmt.Errorf("parsing legacy yaml package list: %w", err)
		}
		return &Document{Packages: list}, nil, nil
	}

	var doc Document
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing yaml config document: %w", err)
	}

	if len(doc.MCPServers) == 0 && len(doc.Packages) == 0 {
		var flat map[string]ServerConfig
		if err := yaml.Unmarshal(trimmed, &flat); err == nil {
			for k := range knownTopLevelKeys {
				delete(flat, k)
			}
			candidates := make(map[string]ServerConfig)
			for k, v := range flat {
				if v.Command != "" || v.URL != "" {
					candidates[k] = v
				}
			}
			if len(candidates) > 0 {
				doc.MCPServers = candidates
			}
		}
	}

	order := make([]string, 0, len(doc.MCPServers))
	for id := range doc.MCPServers {
		order = append(order, id)
	}
	sort.Strings(order)
	return &doc, order, nil
}

// orderedObjectKeys walks the raw JSON token stream to recover the
// declaration order of the keys under the named top-level object, since
// unmarshaling into a Go map discards it.
func orderedObjectKeys(data []byte, objectName string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if key != objectName {
			continue
		}
		return orderedKeysOfRawObject(raw)
	}
	return nil, nil
}

func orderedKeysOfRawObject(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, nil
	}
	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func extractFlatLegacyServers(data []byte) ([]string, map[string]ServerConfig, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, nil, nil
	}
	var order []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			break
		}
		key, _ := keyTok.(string)
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			break
		}
		if knownTopLevelKeys[key] {
			continue
		}
		order = append(order, key)
	}

	servers := make(map[string]ServerConfig)
	for key, msg := range raw {
		if knownTopLevelKeys[key] {
			continue
		}
		var sc ServerConfig
		if err := json.Unmarshal(msg, &sc); err != nil {
			continue
		}
		if sc.Command != "" || sc.URL != "" {
			servers[key] = sc
		}
	}
	filteredOrder := make([]string, 0, len(servers))
	for _, k := range order {
		if _, ok := servers[k]; ok {
			filteredOrder = append(filteredOrder, k)
		}
	}
	return filteredOrder, servers, nil
}
