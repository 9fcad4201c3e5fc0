package config

import (
	"net/url"
	"os"
	"regexp"
	"strings"

	"supermcp/pkg/logging"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnv replaces ${VAR} and $VAR references with the value of the named
// environment variable. ${VAR} warns (once per call site) when the variable
// is unset; $VAR is expanded silently to "" when unset, matching the
// historically looser convention for the unbraced form.
func expandEnv(id, field, value string) string {
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		braced := strings.HasPrefix(match, "${")
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if !braced {
			name = strings.TrimPrefix(match, "$")
		}
		v, ok := os.LookupEnv(name)
		if !ok && braced {
			logging.Warn("config", "package %q field %q references unset environment variable %q", id, field, name)
		}
		return v
	})
}

var placeholderPattern = regexp.MustCompile(`^YOUR_[A-Z0-9_]*$`)

func warnIfPlaceholder(id, field, value string) {
	if placeholderPattern.MatchString(value) {
		logging.Warn("config", "package %q field %q looks like an unfilled placeholder value (%q)", id, field, value)
	}
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// normalizeServer validates and expands a raw ServerConfig into a
// PackageDescriptor. On failure it returns a nil descriptor and a non-empty
// human-readable reason suitable for a SkippedPackage entry.
func normalizeServer(id string, raw ServerConfig) (*PackageDescriptor, string) {
	if id == "" {
		return nil, "id is required"
	}
	if !idPattern.MatchString(id) {
		return nil, "id must start with an alphanumeric character and contain only letters, digits, '-', '_', or '.'"
	}

	command := expandEnv(id, "command", raw.Command)
	baseURL := expandEnv(id, "url", raw.URL)
	cwd := expandEnv(id, "cwd", raw.Cwd)
	clientID := expandEnv(id, "oauthClientId", raw.OAuthClientID)
	clientSecret := expandEnv(id, "oauthClientSecret", raw.OAuthClientSecret)
	warnIfPlaceholder(id, "oauthClientSecret", clientSecret)

	args := make([]string, len(raw.Args))
	for i, a := range raw.Args {
		args[i] = expandEnv(id, "args", a)
	}

	env := make(map[string]string, len(raw.Env))
	for k, v := range raw.Env {
		env[k] = expandEnv(id, "env."+k, v)
	}

	headers := make(map[string]string, len(raw.Headers))
	for k, v := range raw.Headers {
		expanded := expandEnv(id, "headers."+k, v)
		warnIfPlaceholder(id, "headers."+k, expanded)
		headers[k] = expanded
	}

	transport, httpSubtype := resolveTransport(raw.Type, baseURL)

	switch transport {
	case TransportStdio:
		if command == "" {
			return nil, "command is required for stdio servers"
		}
	case TransportHTTP:
		parsed, err := url.ParseRequestURI(baseURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, quoteReason("base_url must be a valid URL, got", raw.URL)
		}
	}

	visibility := VisibilityDefault
	switch strings.ToLower(raw.Visibility) {
	case "", "default":
		visibility = VisibilityDefault
	case "hidden":
		visibility = VisibilityHidden
	default:
		return nil, "visibility must be \"default\" or \"hidden\""
	}

	name := raw.Name
	if name == "" {
		name = id
	}

	return &PackageDescriptor{
		ID:                id,
		Name:              name,
		Description:       raw.Description,
		Transport:         transport,
		HTTPSubtype:       httpSubtype,
		Command:           command,
		Args:              args,
		Env:               env,
		Cwd:               cwd,
		BaseURL:           baseURL,
		Headers:           headers,
		TimeoutMS:         raw.TimeoutMS,
		OAuth:             raw.OAuth,
		OAuthClientID:     clientID,
		OAuthClientSecret: clientSecret,
		Visibility:        visibility,
	}, ""
}

func resolveTransport(declaredType, baseURL string) (Transport, HTTPSubtype) {
	switch strings.ToLower(declaredType) {
	case "sse":
		return TransportHTTP, HTTPSubtypeSSE
	case "http", "streamable", "streamable-http":
		return TransportHTTP, HTTPSubtypeStreamable
	case "stdio", "command", "local":
		return TransportStdio, ""
	}
	if baseURL != "" {
		return TransportHTTP, HTTPSubtypeStreamable
	}
	return TransportStdio, ""
}

func quoteReason(prefix, value string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(` "`)
	b.WriteString(value)
	b.WriteString(`"`)
	return b.String()
}
