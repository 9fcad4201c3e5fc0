package handlers

import (
	"runtime"
	"time"

	"supermcp/internal/catalog"
	"supermcp/internal/config"
	"supermcp/internal/registry"
	"supermcp/internal/security"
)

// Config bundles the timeout and fan-out knobs the handlers honor. cmd/
// populates it from the environment at startup.
type Config struct {
	// ToolTimeout bounds a use_tool call (SUPER_MCP_TOOL_TIMEOUT, default 300s).
	ToolTimeout time.Duration
	// ListToolsTimeout is the list_tools round-trip bound read from
	// SUPER_MCP_LIST_TOOLS_TIMEOUT[_MS] (default 10s; 30s on Windows). No
	// handler applies it: the catalog's upstream ListTools call runs under
	// the caller's context.
	ListToolsTimeout time.Duration
	// VerifyTimeout bounds the post-authenticate health-check verification.
	VerifyTimeout time.Duration
	// FanOutConcurrency bounds list_tool_packages and health_check_all.
	FanOutConcurrency int
}

// DefaultConfig returns the spec's documented default timeouts.
func DefaultConfig() Config {
	cfg := Config{
		ToolTimeout:       300 * time.Second,
		ListToolsTimeout:  10 * time.Second,
		VerifyTimeout:     20 * time.Second,
		FanOutConcurrency: 5,
	}
	if runtime.GOOS == "windows" {
		cfg.ListToolsTimeout = 30 * time.Second
	}
	return cfg
}

// PolicyFunc returns the currently active security policy. It is a function
// rather than a stored pointer because config reload swaps the policy
// atomically; handlers must always read the latest snapshot, never one
// captured at construction time.
type PolicyFunc func() *security.Policy

// Handlers is the shared dependency set every handler method closes over.
type Handlers struct {
	Registry *registry.Registry
	Catalog  *catalog.Catalog
	Policy   PolicyFunc
	Config   Config

	// Help and Search are optional; a nil value falls back to the built-in
	// default implementation.
	Help   HelpSource
	Search SearchIndex
}

// New builds a Handlers bundle.
func New(reg *registry.Registry, cat *catalog.Catalog, policy PolicyFunc, cfg Config) *Handlers {
	return &Handlers{Registry: reg, Catalog: cat, Policy: policy, Config: cfg}
}

func (h *Handlers) fanOutLimit() int {
	if h.Config.FanOutConcurrency <= 0 {
		return 5
	}
	return h.Config.FanOutConcurrency
}

// toolTimeoutFor resolves use_tool's dispatch deadline: a package's own
// timeoutMs config takes precedence over the process-wide
// SUPER_MCP_TOOL_TIMEOUT/default that h.Config.ToolTimeout already carries.
func (h *Handlers) toolTimeoutFor(pkgID string) time.Duration {
	if pkg := h.findPackage(pkgID); pkg != nil && pkg.TimeoutMS > 0 {
		return time.Duration(pkg.TimeoutMS) * time.Millisecond
	}
	if h.Config.ToolTimeout > 0 {
		return h.Config.ToolTimeout
	}
	return DefaultConfig().ToolTimeout
}

func (h *Handlers) findPackage(id string) *config.PackageDescriptor {
	for _, pkg := range h.Registry.Packages() {
		if pkg.ID == id {
			return pkg
		}
	}
	return nil
}
