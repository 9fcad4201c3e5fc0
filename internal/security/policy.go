package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"supermcp/internal/config"
)

// ToolDecision is the outcome of evaluating one tool against the policy and
// the user-disabled overlay.
type ToolDecision struct {
	Blocked      bool
	Reason       string
	UserDisabled bool
}

// PackageDecision is the outcome of evaluating one package against the
// policy.
type PackageDecision struct {
	Blocked bool
	Reason  string
}

// Policy is an immutable, compiled snapshot of the security configuration.
// Build a new one on every config reload and swap the pointer atomically;
// never mutate a Policy in place.
type Policy struct {
	allowedTools    []*pattern
	blockedTools    []*pattern
	allowedPackages []*pattern
	blockedPackages []*pattern
	logBlocked      bool
	userDisabled    map[string]map[string]bool
}

// Compile builds a Policy from raw security configuration and the
// per-server user-disabled tool map. It fails only if a pattern itself is
// malformed, too long, or heuristically unsafe to evaluate.
func Compile(cfg config.SecurityConfig, userDisabledToolsByServer map[string][]string) (*Policy, error) {
	p := &Policy{
		logBlocked:   cfg.LogBlockedAttempts,
		userDisabled: make(map[string]map[string]bool, len(userDisabledToolsByServer)),
	}

	var err error
	if p.allowedTools, err = compileAll(cfg.AllowedTools); err != nil {
		return nil, err
	}
	if p.blockedTools, err = compileAll(cfg.BlockedTools); err != nil {
		return nil, err
	}
	if p.allowedPackages, err = compileAll(cfg.AllowedPackages); err != nil {
		return nil, err
	}
	if p.blockedPackages, err = compileAll(cfg.BlockedPackages); err != nil {
		return nil, err
	}

	for server, tools := range userDisabledToolsByServer {
		set := make(map[string]bool, len(tools))
		for _, t := range tools {
			set[t] = true
		}
		p.userDisabled[server] = set
	}

	return p, nil
}

func compileAll(raws []string) ([]*pattern, error) {
	compiled := make([]*pattern, 0, len(raws))
	for _, raw := range raws {
		p, err := compilePattern(raw)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, p)
	}
	return compiled, nil
}

func anyMatches(patterns []*pattern, subject string) bool {
	for _, p := range patterns {
		if p.matches(subject) {
			return true
		}
	}
	return false
}

// IsPackageBlocked implements the layered allow/block gate for packages: a
// subject passes iff (no allowlist configured OR it matches the allowlist)
// AND it does not match the blocklist.
func (p *Policy) IsPackageBlocked(packageID string) PackageDecision {
	return p.evaluate(packageID, p.allowedPackages, p.blockedPackages, "package")
}

func (p *Policy) isToolBlockedRaw(packageID, toolName string) PackageDecision {
	namespaced := packageID + "__" + toolName

	if anyMatches(p.blockedTools, namespaced) || anyMatches(p.blockedTools, toolName) {
		return PackageDecision{Blocked: true, Reason: "tool matches the configured block pattern"}
	}
	if len(p.allowedTools) > 0 {
		if anyMatches(p.allowedTools, namespaced) || anyMatches(p.allowedTools, toolName) {
			return PackageDecision{}
		}
		return PackageDecision{Blocked: true, Reason: "tool does not match the configured tool allowlist"}
	}
	return PackageDecision{}
}

func (p *Policy) evaluate(subject string, allow, block []*pattern, kind string) PackageDecision {
	if anyMatches(block, subject) {
		return PackageDecision{Blocked: true, Reason: fmt.Sprintf("%s matches the configured block pattern", kind)}
	}
	if len(allow) > 0 && !anyMatches(allow, subject) {
		return PackageDecision{Blocked: true, Reason: fmt.Sprintf("%s does not match the configured allowlist", kind)}
	}
	return PackageDecision{}
}

// EvaluateTool combines security policy and the user-disabled overlay for a
// single tool belonging to a package. Security-blocked takes display
// precedence over user-disabled: if both apply, the reported reason is the
// security one.
func (p *Policy) EvaluateTool(packageID, toolShortName string) ToolDecision {
	if d := p.isToolBlockedRaw(packageID, toolShortName); d.Blocked {
		return ToolDecision{Blocked: true, Reason: d.Reason}
	}
	if p.isUserDisabled(packageID, toolShortName) {
		return ToolDecision{Blocked: true, Reason: "Disabled by user", UserDisabled: true}
	}
	return ToolDecision{}
}

func (p *Policy) isUserDisabled(packageID, toolShortName string) bool {
	set, ok := p.userDisabled[packageID]
	if !ok {
		return false
	}
	return set[toolShortName]
}

// LogBlockedAttempts reports whether blocked invocation attempts should be
// logged at the call site.
func (p *Policy) LogBlockedAttempts() bool {
	return p.logBlocked
}

// DisabledSetHash returns a stable hash of the entire user-disabled overlay,
// for inclusion in the catalog and bulk-export ETags so that disabling or
// re-enabling a tool invalidates client caches.
func (p *Policy) DisabledSetHash() string {
	pairs := make([]string, 0)
	for server, tools := range p.userDisabled {
		for tool := range tools {
			pairs = append(pairs, server+"__"+tool)
		}
	}
	sort.Strings(pairs)
	h := sha256.New()
	h.Write([]byte(strings.Join(pairs, ",")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
