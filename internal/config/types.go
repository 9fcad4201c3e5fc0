package config

// Transport identifies how a package's MCP client talks to its upstream
// process or endpoint.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// HTTPSubtype distinguishes the two HTTP-family wire protocols a package may
// speak. A package never declares this directly; it is derived from the
// "type" field and renegotiated at connect time if the server rejects one.
type HTTPSubtype string

const (
	HTTPSubtypeStreamable HTTPSubtype = "streamable"
	HTTPSubtypeSSE        HTTPSubtype = "sse"
)

// Visibility controls whether a package's tools are advertised in the
// default tool listing.
type Visibility string

const (
	VisibilityDefault Visibility = "default"
	VisibilityHidden  Visibility = "hidden"
)

// ServerConfig is the raw, on-disk shape of a single package entry. It
// carries both json and yaml struct tags so the same type decodes a native
// JSON document or a sibling YAML document without duplication.
type ServerConfig struct {
	ID                string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name              string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description       string            `json:"description,omitempty" yaml:"description,omitempty"`
	Type              string            `json:"type,omitempty" yaml:"type,omitempty"`
	Command           string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args              []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env               map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Cwd               string            `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	URL               string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers           map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	TimeoutMS         int               `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
	OAuth             bool              `json:"oauth,omitempty" yaml:"oauth,omitempty"`
	OAuthClientID     string            `json:"oauthClientId,omitempty" yaml:"oauthClientId,omitempty"`
	OAuthClientSecret string            `json:"oauthClientSecret,omitempty" yaml:"oauthClientSecret,omitempty"`
	Visibility        string            `json:"visibility,omitempty" yaml:"visibility,omitempty"`
}

// SecurityConfig is the raw, on-disk shape of the security policy block.
type SecurityConfig struct {
	BlockedTools        []string `json:"blockedTools,omitempty" yaml:"blockedTools,omitempty"`
	BlockedPackages     []string `json:"blockedPackages,omitempty" yaml:"blockedPackages,omitempty"`
	AllowedTools        []string `json:"allowedTools,omitempty" yaml:"allowedTools,omitempty"`
	AllowedPackages     []string `json:"allowedPackages,omitempty" yaml:"allowedPackages,omitempty"`
	LogBlockedAttempts  bool     `json:"logBlockedAttempts,omitempty" yaml:"logBlockedAttempts,omitempty"`
}

// Document is the raw, on-disk shape of one config file: the native envelope
// plus the two legacy forms a document may take instead of it. Exactly one
// of MCPServers, Packages, or the flat form (handled in the loader) is
// populated for any given real-world file.
type Document struct {
	MCPServers                map[string]ServerConfig `json:"mcpServers,omitempty" yaml:"mcpServers,omitempty"`
	Packages                  []ServerConfig           `json:"packages,omitempty" yaml:"packages,omitempty"`
	ConfigPaths               []string                 `json:"configPaths,omitempty" yaml:"configPaths,omitempty"`
	Security                  SecurityConfig           `json:"security,omitempty" yaml:"security,omitempty"`
	UserDisabledToolsByServer map[string][]string      `json:"userDisabledToolsByServer,omitempty" yaml:"userDisabledToolsByServer,omitempty"`
	DisabledServers           []string                 `json:"disabledServers,omitempty" yaml:"disabledServers,omitempty"`
}

// PackageDescriptor is the normalized, validated form of a package entry
// that the rest of supermcp operates on. Unlike ServerConfig it has already
// had environment variables expanded and its transport/subtype resolved.
type PackageDescriptor struct {
	ID                string
	Name              string
	Description       string
	Transport         Transport
	HTTPSubtype       HTTPSubtype
	Command           string
	Args              []string
	Env               map[string]string
	Cwd               string
	BaseURL           string
	Headers           map[string]string
	TimeoutMS         int
	OAuth             bool
	OAuthClientID     string
	OAuthClientSecret string
	Visibility        Visibility
}

// SkippedPackage records why a package entry was dropped during loading
// rather than blocking the whole configuration.
type SkippedPackage struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// MergedConfig is the fully loaded, merged, and normalized configuration:
// the output of Load.
type MergedConfig struct {
	Packages                  []*PackageDescriptor
	Security                  SecurityConfig
	UserDisabledToolsByServer map[string][]string
	DisabledServers           map[string]bool
	Skipped                   []SkippedPackage
	Warnings                  []string
}

// PackageByID returns the descriptor with the given id, or nil.
func (m *MergedConfig) PackageByID(id string) *PackageDescriptor {
	for _, p := range m.Packages {
		if p.ID == id {
			return p
		}
	}
	return nil
}
