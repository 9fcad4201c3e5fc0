package oauthprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"supermcp/internal/credentials"
	"supermcp/pkg/logging"
)

// Provider is the interface the HTTP client depends on. Both variants
// satisfy it; only their Authenticate behavior differs.
type Provider interface {
	// AccessToken returns a currently valid access token, silently
	// refreshing it first if it is expired and a refresh token is on file.
	AccessToken(ctx context.Context) (string, error)
	// Authenticate performs (or, for the refresh-only variant, refuses) the
	// interactive browser-based authorization flow.
	Authenticate(ctx context.Context) error
}

// FullFlowProvider performs dynamic client registration, the interactive
// browser authorization-code flow with PKCE, and token refresh, for one
// package. It shares one underlying credential store across both provider
// variants.
type FullFlowProvider struct {
	PackageID   string
	IssuerURL   string
	RedirectURI string

	store      *credentials.Store
	httpClient *http.Client

	mu              sync.Mutex
	metadataCache   map[string]*Metadata
	metadataGroup   singleflight.Group
	pendingVerifier string
	pendingState    string

	staticClientID     string
	staticClientSecret string
}

// WithStaticClient configures a pre-registered OAuth client id (and,
// optionally, secret) for this package, taken from its config descriptor's
// oauth_client_id/oauth_client_secret. When set, ensureClientRegistration
// uses it directly instead of performing RFC 7591 dynamic registration.
func (p *FullFlowProvider) WithStaticClient(clientID, clientSecret string) *FullFlowProvider {
	p.staticClientID = clientID
	p.staticClientSecret = clientSecret
	return p
}

// NewFullFlowProvider constructs a provider for packageID talking to the
// authorization server discoverable at issuerURL, using redirectURI as the
// registered loopback callback.
func NewFullFlowProvider(packageID, issuerURL, redirectURI string, store *credentials.Store, httpClient *http.Client) *FullFlowProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &FullFlowProvider{
		PackageID:     packageID,
		IssuerURL:     issuerURL,
		RedirectURI:   redirectURI,
		store:         store,
		httpClient:    httpClient,
		metadataCache: make(map[string]*Metadata),
	}
}

// DiscoverMetadata fetches RFC 8414 authorization server metadata, falling
// back to the OIDC discovery document shape, with concurrent requests for
// the same issuer coalesced via singleflight.
func (p *FullFlowProvider) DiscoverMetadata(ctx context.Context) (*Metadata, error) {
	p.mu.Lock()
	if cached, ok := p.metadataCache[p.IssuerURL]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	result, err, _ := p.metadataGroup.Do(p.IssuerURL, func() (interface{}, error) {
		meta, err := p.fetchMetadata(ctx, "/.well-known/oauth-authorization-server")
		if err != nil {
			meta, err = p.fetchMetadata(ctx, "/.well-known/openid-configuration")
		}
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.metadataCache[p.IssuerURL] = meta
		p.mu.Unlock()
		return meta, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Metadata), nil
}

func (p *FullFlowProvider) fetchMetadata(ctx context.Context, wellKnownPath string) (*Metadata, error) {
	base, err := url.Parse(p.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oauthprovider: invalid issuer url: %w", err)
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + wellKnownPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauthprovider: metadata fetch %s returned %d", base.String(), resp.StatusCode)
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("oauthprovider: decoding metadata: %w", err)
	}
	return &meta, nil
}

// ClearMetadataCache drops any cached discovery document for this
// provider's issuer, forcing the next DiscoverMetadata call to refetch.
func (p *FullFlowProvider) ClearMetadataCache() {
	p.mu.Lock()
	delete(p.metadataCache, p.IssuerURL)
	p.mu.Unlock()
}

// ensureClientRegistration returns the package's existing dynamic client
// registration, performing RFC 7591 registration against the server if none
// is on file yet.
func (p *FullFlowProvider) ensureClientRegistration(ctx context.Context, meta *Metadata) (*credentials.ClientRecord, error) {
	if p.staticClientID != "" {
		return &credentials.ClientRecord{ClientID: p.staticClientID, ClientSecret: p.staticClientSecret}, nil
	}

	if rec, ok, err := p.store.LoadClient(p.PackageID); err != nil {
		return nil, err
	} else if ok {
		return rec, nil
	}

	if meta.RegistrationEndpoint == "" {
		return nil, fmt.Errorf("oauthprovider: %s has no client_id on file and the server advertises no registration endpoint", p.PackageID)
	}

	reqBody := ClientMetadata{
		ClientName:              "supermcp",
		RedirectURIs:            []string{p.RedirectURI},
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none",
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, meta.RegistrationEndpoint, strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauthprovider: dynamic client registration request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauthprovider: dynamic client registration returned %d", resp.StatusCode)
	}

	var regResp clientRegistrationResponse
	if err := json.NewDecoder(resp.Body).Decode(&regResp); err != nil {
		return nil, fmt.Errorf("oauthprovider: decoding registration response: %w", err)
	}

	rec := &credentials.ClientRecord{ClientID: regResp.ClientID, ClientSecret: regResp.ClientSecret}
	if err := p.store.SaveClient(p.PackageID, rec); err != nil {
		logging.Warn("oauth", "failed to persist client registration for %q: %v", p.PackageID, err)
	}
	return rec, nil
}

// BuildAuthorizationURL constructs the /authorize redirect target.
func (p *FullFlowProvider) BuildAuthorizationURL(meta *Metadata, clientID, state, codeChallenge string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", p.RedirectURI)
	q.Set("state", state)
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
		q.Set("code_challenge_method", "S256")
	}
	sep := "?"
	if strings.Contains(meta.AuthorizationEndpoint, "?") {
		sep = "&"
	}
	return meta.AuthorizationEndpoint + sep + q.Encode()
}

// LaunchBrowser best-effort-opens the system browser at url. Failure is
// logged and also returned to the caller.
func LaunchBrowser(targetURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", targetURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", targetURL)
	default:
		cmd = exec.Command("xdg-open", targetURL)
	}
	if err := cmd.Start(); err != nil {
		logging.Warn("oauth", "failed to launch browser for authorization: %v", err)
		return err
	}
	return nil
}

// Authenticate runs the full interactive browser flow: port selection,
// callback server, PKCE + state generation, dynamic registration, browser
// launch, callback wait, code exchange, and token persistence.
func (p *FullFlowProvider) Authenticate(ctx context.Context) error {
	meta, err := p.DiscoverMetadata(ctx)
	if err != nil {
		return fmt.Errorf("oauthprovider: discovering metadata for %q: %w", p.PackageID, err)
	}

	clientRec, err := p.ensureClientRegistration(ctx, meta)
	if err != nil {
		return err
	}

	pkce, err := GeneratePKCE()
	if err != nil {
		return err
	}
	state, err := GenerateState()
	if err != nil {
		return err
	}

	port, err := p.callbackPort()
	if err != nil {
		return err
	}
	clientRec.CallbackPort = port
	if err := p.store.SaveClient(p.PackageID, clientRec); err != nil {
		logging.Warn("oauth", "failed to persist callback port for %q: %v", p.PackageID, err)
	}

	callback, err := NewCallbackServer(port, state)
	if err != nil {
		return err
	}
	callback.Serve()
	defer callback.Close()

	authURL := p.BuildAuthorizationURL(meta, clientRec.ClientID, state, pkce.Challenge)
	if err := LaunchBrowser(authURL); err != nil {
		logging.Info("oauth", "open this URL to authorize %q: %s", p.PackageID, authURL)
	}

	result, err := callback.Wait(ctx)
	if err != nil {
		return fmt.Errorf("oauthprovider: waiting for authorization callback: %w", err)
	}
	if result.Error != "" {
		return fmt.Errorf("oauthprovider: authorization denied: %s", result.Error)
	}

	return p.finishAuth(ctx, meta, clientRec, result.Code, pkce.Verifier)
}

func (p *FullFlowProvider) callbackPort() (int, error) {
	rec, ok, err := p.store.LoadClient(p.PackageID)
	if err == nil && ok && rec.CallbackPort != 0 && IsPortFree(rec.CallbackPort) {
		return rec.CallbackPort, nil
	}
	return FindFreePort(defaultStartPort, defaultAttempts)
}

// finishAuth exchanges an authorization code for tokens and persists them.
func (p *FullFlowProvider) finishAuth(ctx context.Context, meta *Metadata, clientRec *credentials.ClientRecord, code, verifier string) error {
	values := url.Values{}
	values.Set("grant_type", "authorization_code")
	values.Set("code", code)
	values.Set("redirect_uri", p.RedirectURI)
	values.Set("client_id", clientRec.ClientID)
	if verifier != "" {
		values.Set("code_verifier", verifier)
	}

	tokens, err := p.doTokenRequest(ctx, meta.TokenEndpoint, clientRec, values)
	if err != nil {
		return err
	}
	if err := p.store.SaveTokens(p.PackageID, tokens); err != nil {
		logging.Warn("oauth", "failed to persist tokens for %q: %v", p.PackageID, err)
	}
	return nil
}

func (p *FullFlowProvider) doTokenRequest(ctx context.Context, tokenEndpoint string, clientRec *credentials.ClientRecord, values url.Values) (*credentials.TokenRecord, error) {
	if clientRec.ClientSecret != "" {
		values.Set("client_secret", clientRec.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauthprovider: token request failed: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("oauthprovider: decoding token response: %w", err)
	}
	if tr.Error != "" {
		if strings.Contains(strings.ToLower(tr.Error), "invalid_client") {
			return nil, &InvalidTokenError{PackageID: p.PackageID}
		}
		return nil, fmt.Errorf("oauthprovider: token endpoint returned %s: %s", tr.Error, tr.ErrorDesc)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &UnauthorizedError{PackageID: p.PackageID}
	}

	return tokenRecordFromOAuth2(tr.toOAuth2Token()), nil
}

// AccessToken returns the current access token, refreshing it first if it
// is expired (or within a 30s safety margin of expiring) and a refresh
// token is on file.
func (p *FullFlowProvider) AccessToken(ctx context.Context) (string, error) {
	tokens, ok, err := p.store.LoadTokens(p.PackageID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &AuthRequiredError{PackageID: p.PackageID}
	}
	if !tokens.IsExpired(30 * time.Second) {
		return tokens.AccessToken, nil
	}
	if tokens.RefreshToken == "" {
		return "", &AuthRequiredError{PackageID: p.PackageID}
	}

	meta, err := p.DiscoverMetadata(ctx)
	if err != nil {
		return "", err
	}
	clientRec, ok, err := p.store.LoadClient(p.PackageID)
	if err != nil || !ok {
		return "", &AuthRequiredError{PackageID: p.PackageID}
	}

	values := url.Values{}
	values.Set("grant_type", "refresh_token")
	values.Set("refresh_token", tokens.RefreshToken)
	values.Set("client_id", clientRec.ClientID)

	refreshed, err := p.doTokenRequest(ctx, meta.TokenEndpoint, clientRec, values)
	if err != nil {
		return "", err
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tokens.RefreshToken
	}
	if err := p.store.SaveTokens(p.PackageID, refreshed); err != nil {
		logging.Warn("oauth", "failed to persist refreshed tokens for %q: %v", p.PackageID, err)
	}
	return refreshed.AccessToken, nil
}

// RefreshOnlyProvider delegates everything to an underlying FullFlowProvider
// except Authenticate, which it refuses — used for passive operations
// (discovery, health checks) so a valid refresh token can silently renew
// access without ever prompting the user.
type RefreshOnlyProvider struct {
	full *FullFlowProvider
}

// NewRefreshOnlyProvider wraps full, denying interactive authentication.
func NewRefreshOnlyProvider(full *FullFlowProvider) *RefreshOnlyProvider {
	return &RefreshOnlyProvider{full: full}
}

// AccessToken delegates to the wrapped full-flow provider's silent refresh
// path.
func (r *RefreshOnlyProvider) AccessToken(ctx context.Context) (string, error) {
	return r.full.AccessToken(ctx)
}

// Authenticate always fails: this variant never performs the interactive
// browser flow.
func (r *RefreshOnlyProvider) Authenticate(ctx context.Context) error {
	return &AuthRequiredError{PackageID: r.full.PackageID}
}
