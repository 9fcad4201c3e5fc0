package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"supermcp/internal/mcpclient"
)

// authShapedSubstrings are the message fragments that mark a tool-list
// load failure as an authentication problem rather than a generic error.
var authShapedSubstrings = []string{
	"oauth", "401", "unauthorized", "invalid_token", "authorization",
}

// Catalog caches every package's tool list plus a scheme://authority to
// package-id resource lookup table, all behind one mutex. The process-wide
// ETag changes whenever any entry's content changes.
type Catalog struct {
	mu               sync.Mutex
	entries          map[string]*Entry
	resourcePrefixes map[string]string // "scheme://authority" -> package id
	etag             string
	etagSeq          int64
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		entries:          make(map[string]*Entry),
		resourcePrefixes: make(map[string]string),
	}
}

// EnsureLoaded returns the cached entry for id if it is ready, or if it is
// in a non-ready status but was checked within the last 60s. Otherwise it
// calls client.ListTools and refreshes the entry.
func (c *Catalog) EnsureLoaded(ctx context.Context, id string, client mcpclient.Client) (*Entry, error) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if ok && !entry.needsRefresh(time.Now()) {
		snapshot := *entry
		c.mu.Unlock()
		return &snapshot, nil
	}
	c.mu.Unlock()

	tools, err := client.ListTools(ctx)
	if err != nil {
		return c.recordFailure(id, err), nil
	}
	return c.recordSuccess(id, client, tools), nil
}

func (c *Catalog) recordFailure(id string, err error) *Entry {
	status := StatusError
	if isAuthShaped(err) {
		status = StatusAuthRequired
	}
	entry := &Entry{
		PackageID:   id,
		Status:      status,
		LastUpdated: time.Now(),
		LastError:   err.Error(),
	}
	c.store(id, entry)
	return entry
}

func (c *Catalog) recordSuccess(id string, client mcpclient.Client, tools []mcp.Tool) *Entry {
	built := make([]Tool, 0, len(tools))
	for _, t := range tools {
		built = append(built, buildTool(id, t))
	}
	c.registerResourcePrefixesFor(id, client)

	entry := &Entry{
		PackageID:   id,
		Status:      StatusReady,
		LastUpdated: time.Now(),
		Tools:       built,
	}
	c.store(id, entry)
	return entry
}

// SeedForTest installs entry directly into the cache, bypassing EnsureLoaded.
// It exists so callers that only need a populated catalog (list_tools,
// list_tool_packages) can set one up without a live mcpclient.Client.
func (c *Catalog) SeedForTest(id string, entry *Entry) {
	c.store(id, entry)
}

func (c *Catalog) store(id string, entry *Entry) {
	c.mu.Lock()
	c.entries[id] = entry
	c.etagSeq++
	c.etag = ""
	c.mu.Unlock()
}

// ClearPackage drops a package's cached entry, forcing the next
// EnsureLoaded to reload it immediately regardless of the retry interval.
// Called after any operation that proves the package healthy again.
func (c *Catalog) ClearPackage(id string) {
	c.mu.Lock()
	if _, ok := c.entries[id]; ok {
		delete(c.entries, id)
		c.etagSeq++
		c.etag = ""
	}
	c.mu.Unlock()
}

// Entry returns the cached entry for id, if any, without triggering a load.
func (c *Catalog) Entry(id string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	snapshot := *entry
	return &snapshot, true
}

// ETag recomputes (if necessary) and returns the process-wide catalog ETag:
// a hash of each cached entry's package id, status and last-updated
// timestamp, in sorted id order. The user-disabled set is not part of it;
// the server's /api/tools endpoint appends security.Policy.DisabledSetHash
// to this value itself.
func (c *Catalog) ETag() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.etag != "" {
		return c.etag
	}

	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		e := c.entries[id]
		fmt.Fprintf(h, "%s:%s:%d\n", id, e.Status, e.LastUpdated.UnixNano())
	}
	c.etag = hex.EncodeToString(h.Sum(nil))[:16]
	return c.etag
}

// RegisterResourcePrefix associates a "scheme://authority" key with the
// package that owns it, used by ResolveResource's first-match lookup.
func (c *Catalog) RegisterResourcePrefix(prefix, packageID string) {
	c.mu.Lock()
	c.resourcePrefixes[prefix] = packageID
	c.mu.Unlock()
}

// ResolveResource resolves a resource URI to an owning package id: first via
// the literal scheme://authority table, then via the structured
// ui://{pkgid}/... fallback.
func (c *Catalog) ResolveResource(uri string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if authority, ok := schemeAuthority(uri); ok {
		if pkgID, ok := c.resourcePrefixes[authority]; ok {
			return pkgID, true
		}
	}

	const uiPrefix = "ui://"
	if strings.HasPrefix(uri, uiPrefix) {
		rest := strings.TrimPrefix(uri, uiPrefix)
		if idx := strings.IndexByte(rest, '/'); idx > 0 {
			return rest[:idx], true
		}
		if rest != "" {
			return rest, true
		}
	}
	return "", false
}

func schemeAuthority(uri string) (string, bool) {
	idx := strings.Index(uri, "://")
	if idx < 0 {
		return "", false
	}
	scheme := uri[:idx]
	rest := uri[idx+3:]
	authority := rest
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		authority = rest[:slash]
	}
	return scheme + "://" + authority, true
}

func (c *Catalog) registerResourcePrefixesFor(id string, client mcpclient.Client) {
	resources, err := client.ListResources(context.Background())
	if err != nil {
		return
	}
	for _, r := range resources {
		if authority, ok := schemeAuthority(r.URI); ok {
			c.RegisterResourcePrefix(authority, id)
		}
	}
}

func isAuthShaped(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, needle := range authShapedSubstrings {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// buildTool converts one upstream mcp.Tool into the catalog's enriched
// shape: namespaced name, content-addressable schema hash, a truncated
// summary, and a minimal args skeleton built from required properties.
func buildTool(packageID string, t mcp.Tool) Tool {
	schema := schemaToMap(t.InputSchema)
	return Tool{
		Name:         packageID + "__" + t.Name,
		Description:  t.Description,
		InputSchema:  schema,
		SchemaHash:   hashSchema(schema),
		Summary:      summarize(t.Description),
		ArgsSkeleton: buildArgsSkeleton(t.InputSchema),
	}
}

// schemaToMap round-trips the upstream schema through JSON so every field
// mcp.ToolInputSchema carries (including additionalProperties on mcp-go
// versions that expose it) survives into the catalog's generic map shape,
// without this package needing to know the struct's exact field set.
func schemaToMap(schema mcp.ToolInputSchema) map[string]interface{} {
	m := map[string]interface{}{"type": schema.Type}
	if len(schema.Properties) > 0 {
		m["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		return m
	}
	var full map[string]interface{}
	if err := json.Unmarshal(encoded, &full); err != nil {
		return m
	}
	for k, v := range full {
		if _, exists := m[k]; !exists {
			m[k] = v
		}
	}
	return m
}

func hashSchema(schema map[string]interface{}) string {
	canonical, err := json.Marshal(schema)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:16]
}

const summaryMaxLen = 120

func summarize(description string) string {
	desc := strings.TrimSpace(description)
	if idx := strings.IndexAny(desc, ".\n"); idx > 0 && idx < summaryMaxLen {
		return desc[:idx]
	}
	if len(desc) <= summaryMaxLen {
		return desc
	}
	return desc[:summaryMaxLen] + "..."
}

func buildArgsSkeleton(schema mcp.ToolInputSchema) map[string]interface{} {
	skeleton := make(map[string]interface{}, len(schema.Required))
	for _, name := range schema.Required {
		skeleton[name] = argPlaceholder(schema.Properties[name])
	}
	return skeleton
}

func argPlaceholder(propSchema interface{}) string {
	props, ok := propSchema.(map[string]interface{})
	if !ok {
		return "<value>"
	}
	if enum, ok := props["enum"].([]interface{}); ok && len(enum) > 0 {
		values := make([]string, 0, len(enum))
		for _, v := range enum {
			values = append(values, fmt.Sprintf("%v", v))
		}
		return "<one of: " + strings.Join(values, ", ") + ">"
	}
	typ, _ := props["type"].(string)
	if typ == "" {
		typ = "value"
	}
	return "<" + typ + ">"
}
