// Package oauthprovider implements the package-facing side of OAuth 2.1
// authorization: PKCE generation, RFC 8414/OIDC metadata discovery, RFC 7591
// dynamic client registration, the authorization-code exchange and refresh
// requests, a loopback callback server, and a sequential port finder.
//
// Two provider variants share one underlying implementation and credential
// store: FullFlowProvider performs the interactive browser-based flow, and
// RefreshOnlyProvider wraps it to allow only silent token refresh, turning
// any attempt at an interactive flow into an "authentication required"
// error. This lets read-only operations (discovery, health checks) renew an
// expiring token without ever popping a browser window.
package oauthprovider
