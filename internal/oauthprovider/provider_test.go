package oauthprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supermcp/internal/credentials"
)

func newTestCredStore(t *testing.T) *credentials.Store {
	t.Helper()
	s, err := credentials.NewStore(filepath.Join(t.TempDir(), "oauth-tokens"))
	require.NoError(t, err)
	return s
}

func TestDiscoverMetadata_FetchesAndCaches(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.well-known/oauth-authorization-server" {
			hits++
			json.NewEncoder(w).Encode(Metadata{
				Issuer:                "https://example.com",
				AuthorizationEndpoint: "https://example.com/authorize",
				TokenEndpoint:         "https://example.com/token",
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := newTestCredStore(t)
	p := NewFullFlowProvider("notion", srv.URL, "http://127.0.0.1:5173/oauth/callback", store, srv.Client())

	meta1, err := p.DiscoverMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/token", meta1.TokenEndpoint)

	meta2, err := p.DiscoverMetadata(context.Background())
	require.NoError(t, err)
	assert.Same(t, meta1, meta2)
	assert.Equal(t, 1, hits)
}

func TestDiscoverMetadata_FallsBackToOIDCDiscovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/oauth-authorization-server":
			w.WriteHeader(http.StatusNotFound)
		case "/.well-known/openid-configuration":
			json.NewEncoder(w).Encode(Metadata{
				Issuer:                "https://example.com",
				AuthorizationEndpoint: "https://example.com/authorize",
				TokenEndpoint:         "https://example.com/token",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	store := newTestCredStore(t)
	p := NewFullFlowProvider("notion", srv.URL, "http://127.0.0.1:5173/oauth/callback", store, srv.Client())

	meta, err := p.DiscoverMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/authorize", meta.AuthorizationEndpoint)
}

func TestEnsureClientRegistration_RegistersOnceAndPersists(t *testing.T) {
	var registrations int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		registrations++
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(clientRegistrationResponse{ClientID: "dyn-client-1"})
	}))
	defer srv.Close()

	store := newTestCredStore(t)
	p := NewFullFlowProvider("notion", srv.URL, "http://127.0.0.1:5173/oauth/callback", store, srv.Client())
	meta := &Metadata{RegistrationEndpoint: srv.URL}

	rec, err := p.ensureClientRegistration(context.Background(), meta)
	require.NoError(t, err)
	assert.Equal(t, "dyn-client-1", rec.ClientID)

	rec2, err := p.ensureClientRegistration(context.Background(), meta)
	require.NoError(t, err)
	assert.Equal(t, "dyn-client-1", rec2.ClientID)
	assert.Equal(t, 1, registrations)
}

func TestEnsureClientRegistration_PrefersStaticClientOverDynamicRegistration(t *testing.T) {
	var registrations int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		registrations++
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(clientRegistrationResponse{ClientID: "dyn-client-1"})
	}))
	defer srv.Close()

	store := newTestCredStore(t)
	p := NewFullFlowProvider("notion", srv.URL, "http://127.0.0.1:5173/oauth/callback", store, srv.Client())
	p.WithStaticClient("static-client-1", "static-secret-1")
	meta := &Metadata{RegistrationEndpoint: srv.URL}

	rec, err := p.ensureClientRegistration(context.Background(), meta)
	require.NoError(t, err)
	assert.Equal(t, "static-client-1", rec.ClientID)
	assert.Equal(t, "static-secret-1", rec.ClientSecret)
	assert.Equal(t, 0, registrations)
}

func TestAccessToken_RefreshesExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/oauth-authorization-server":
			json.NewEncoder(w).Encode(Metadata{TokenEndpoint: "http://" + r.Host + "/token"})
		case "/token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
			json.NewEncoder(w).Encode(tokenResponse{AccessToken: "new-access", ExpiresIn: 3600})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	store := newTestCredStore(t)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, store.SaveTokens("notion", &credentials.TokenRecord{AccessToken: "old", RefreshToken: "rt", ExpiresAt: &past}))
	require.NoError(t, store.SaveClient("notion", &credentials.ClientRecord{ClientID: "client-1"}))

	p := NewFullFlowProvider("notion", srv.URL, "http://127.0.0.1:5173/oauth/callback", store, srv.Client())

	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", token)
}

func TestAccessToken_ReturnsAuthRequiredWhenNoTokensSaved(t *testing.T) {
	store := newTestCredStore(t)
	p := NewFullFlowProvider("notion", "https://example.com", "http://127.0.0.1:5173/oauth/callback", store, nil)

	_, err := p.AccessToken(context.Background())
	require.Error(t, err)
	var authErr *AuthRequiredError
	assert.ErrorAs(t, err, &authErr)
}

func TestRefreshOnlyProvider_RejectsAuthenticate(t *testing.T) {
	store := newTestCredStore(t)
	full := NewFullFlowProvider("notion", "https://example.com", "http://127.0.0.1:5173/oauth/callback", store, nil)
	refreshOnly := NewRefreshOnlyProvider(full)

	err := refreshOnly.Authenticate(context.Background())
	require.Error(t, err)
	var authErr *AuthRequiredError
	assert.ErrorAs(t, err, &authErr)
}

func TestBuildAuthorizationURL_IncludesPKCEAndState(t *testing.T) {
	store := newTestCredStore(t)
	p := NewFullFlowProvider("notion", "https://example.com", "http://127.0.0.1:5173/oauth/callback", store, nil)
	meta := &Metadata{AuthorizationEndpoint: "https://example.com/authorize"}

	authURL := p.BuildAuthorizationURL(meta, "client-1", "state-1", "challenge-1")
	assert.Contains(t, authURL, "client_id=client-1")
	assert.Contains(t, authURL, "state=state-1")
	assert.Contains(t, authURL, "code_challenge=challenge-1")
	assert.Contains(t, authURL, "code_challenge_method=S256")
}
