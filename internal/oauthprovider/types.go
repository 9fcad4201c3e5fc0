package oauthprovider

import (
	"time"

	"golang.org/x/oauth2"

	"supermcp/internal/credentials"
)

// Metadata is the subset of an RFC 8414 authorization server metadata
// document (or its OIDC discovery fallback) this package consumes.
type Metadata struct {
	Issuer                string   `json:"issuer"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	RegistrationEndpoint  string   `json:"registration_endpoint,omitempty"`
	ScopesSupported       []string `json:"scopes_supported,omitempty"`
	CodeChallengeMethods  []string `json:"code_challenge_methods_supported,omitempty"`
}

// SupportsPKCE reports whether the server advertises S256 PKCE support. An
// empty CodeChallengeMethods list is treated as PKCE-capable since many
// servers omit the field while still accepting a challenge.
func (m *Metadata) SupportsPKCE() bool {
	if len(m.CodeChallengeMethods) == 0 {
		return true
	}
	for _, method := range m.CodeChallengeMethods {
		if method == "S256" {
			return true
		}
	}
	return false
}

// ClientMetadata is an RFC 7591 dynamic client registration request.
type ClientMetadata struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// clientRegistrationResponse is the RFC 7591 registration response.
type clientRegistrationResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// tokenResponse is an RFC 6749 token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

// toOAuth2Token projects a raw RFC 6749 token response onto the standard
// oauth2.Token shape, giving the rest of the package a single, well-known
// type to pass around instead of the wire-format tokenResponse.
func (tr *tokenResponse) toOAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok
}

// tokenRecordFromOAuth2 converts an oauth2.Token into the TokenRecord shape
// credentials.Store persists.
func tokenRecordFromOAuth2(tok *oauth2.Token) *credentials.TokenRecord {
	rec := &credentials.TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiresAt := tok.Expiry
		rec.ExpiresAt = &expiresAt
	}
	return rec
}

// AuthRequiredError indicates an operation needs an interactive browser
// flow but is running in a context (refresh-only) that cannot provide one.
type AuthRequiredError struct {
	PackageID string
}

func (e *AuthRequiredError) Error() string {
	return "authentication required for package " + e.PackageID
}

// UnauthorizedError surfaces a 401/Unauthorized response from an upstream,
// naming the offending package.
type UnauthorizedError struct {
	PackageID string
}

func (e *UnauthorizedError) Error() string {
	return "unauthorized: " + e.PackageID
}

// InvalidTokenError surfaces a client id/secret mismatch detected by the
// upstream, meaning the stored registration must be discarded.
type InvalidTokenError struct {
	PackageID string
}

func (e *InvalidTokenError) Error() string {
	return "invalid token for package " + e.PackageID
}
