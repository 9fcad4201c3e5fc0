package mcpclient

import (
	"fmt"

	"supermcp/internal/config"
	"supermcp/internal/credentials"
	"supermcp/internal/oauthprovider"
)

// NewClientForPackage builds the appropriate Client implementation for a
// package descriptor: a StdioClient for transport "stdio", an HTTPClient
// (with OAuth providers attached when the package declares oauth) for
// transport "http". This is the one place that decides which concrete
// transport a package gets, so the registry never branches on
// config.Transport itself.
func NewClientForPackage(pkg *config.PackageDescriptor, store *credentials.Store, redirectURI string) (Client, error) {
	switch pkg.Transport {
	case config.TransportStdio:
		if pkg.Command == "" {
			return nil, fmt.Errorf("mcpclient: package %q declares stdio transport with no command", pkg.ID)
		}
		return NewStdioClient(pkg.ID, pkg.Command, pkg.Args, pkg.Env, pkg.Cwd), nil

	case config.TransportHTTP:
		if pkg.BaseURL == "" {
			return nil, fmt.Errorf("mcpclient: package %q declares http transport with no base_url", pkg.ID)
		}
		opts := []HTTPClientOption{}
		if pkg.HTTPSubtype == config.HTTPSubtypeSSE {
			opts = append(opts, WithForceSSE())
		}
		if pkg.OAuth {
			full := oauthprovider.NewFullFlowProvider(pkg.ID, pkg.BaseURL, redirectURI, store, nil)
			if pkg.OAuthClientID != "" {
				full.WithStaticClient(pkg.OAuthClientID, pkg.OAuthClientSecret)
			}
			refreshOnly := oauthprovider.NewRefreshOnlyProvider(full)
			opts = append(opts, WithOAuth(full, refreshOnly))
		}
		return NewHTTPClient(pkg.ID, pkg.BaseURL, pkg.Headers, opts...), nil

	default:
		return nil, fmt.Errorf("mcpclient: package %q has unrecognized transport %q", pkg.ID, pkg.Transport)
	}
}
