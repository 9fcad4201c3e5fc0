package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHostAllowed(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{"localhost:8585", true},
		{"127.0.0.1:8585", true},
		{"[::1]:8585", true},
		{"localhost", true},
		{"evil.example.com", false},
		{"evil.example.com:8585", false},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		r.Host = c.host
		if got := hostAllowed(r); got != c.want {
			t.Errorf("hostAllowed(%q) = %v, want %v", c.host, got, c.want)
		}
	}
}

func TestRebindingProtectionRejectsForeignHost(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rebindingProtection(next)

	r := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	r.Host = "attacker.example.com"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusMisdirectedRequest {
		t.Fatalf("expected 421, got %d", w.Code)
	}
}

func TestRebindingProtectionAllowsLoopback(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rebindingProtection(next)

	r := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	r.Host = "127.0.0.1:8585"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
