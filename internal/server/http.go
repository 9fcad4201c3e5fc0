package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"supermcp/internal/config"
)

// allowedHosts is the DNS-rebinding-protection allowlist for the /mcp
// endpoint: only a loopback Host header (localhost, 127.0.0.1, ::1) is
// accepted.
var allowedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

func hostAllowed(r *http.Request) bool {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return allowedHosts[host]
}

// rebindingProtection wraps the MCP handler so only requests carrying a
// loopback Host header reach it; anything else gets 421 Misdirected
// Request, the status reserved for "you reached the wrong origin server".
func rebindingProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hostAllowed(r) {
			http.Error(w, "host not allowed", http.StatusMisdirectedRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) createMux(mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/tools", s.handleAPITools)

	mux.Handle("/mcp", rebindingProtection(mcpHandler))

	return mux
}

// apiToolView is the JSON shape /api/tools exports: the catalog's tool
// views plus the security annotations, flattened across every visible
// package.
type apiToolView struct {
	Name          string                 `json:"name"`
	PackageID     string                 `json:"package_id"`
	Description   string                 `json:"description"`
	Summary       string                 `json:"summary"`
	InputSchema   map[string]interface{} `json:"input_schema,omitempty"`
	SchemaHash    string                 `json:"schema_hash,omitempty"`
	Blocked       bool                   `json:"blocked"`
	BlockedReason string                 `json:"blocked_reason,omitempty"`
	UserDisabled  bool                   `json:"user_disabled"`
}

// handleAPITools serves a bulk JSON export of the whole cached catalog.
// The ETag combines the catalog's content hash with the security policy's
// disabled-set hash, since toggling a tool's enabled state changes what a
// client should see without the catalog's own content changing.
func (s *Server) handleAPITools(w http.ResponseWriter, r *http.Request) {
	policy := s.handlers.Policy()
	etag := s.handlers.Catalog.ETag() + policy.DisabledSetHash()

	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var views []apiToolView
	for _, pkg := range s.handlers.Registry.Packages() {
		if pkg.Visibility == config.VisibilityHidden {
			continue
		}
		entry, ok := s.handlers.Catalog.Entry(pkg.ID)
		if !ok {
			continue
		}
		for _, tool := range entry.Tools {
			shortName := strings.TrimPrefix(tool.Name, pkg.ID+"__")
			decision := policy.EvaluateTool(pkg.ID, shortName)
			views = append(views, apiToolView{
				Name:          tool.Name,
				PackageID:     pkg.ID,
				Description:   tool.Description,
				Summary:       tool.Summary,
				InputSchema:   tool.InputSchema,
				SchemaHash:    tool.SchemaHash,
				Blocked:       decision.Blocked,
				BlockedReason: decision.Reason,
				UserDisabled:  decision.UserDisabled,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"tools": views})
}
