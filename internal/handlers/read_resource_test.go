package handlers

import (
	"context"
	"testing"

	"supermcp/internal/config"
)

func TestReadResourceUnresolvedURI(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil, config.SecurityConfig{})
	_, err := h.ReadResource(context.Background(), "fs:///tmp/x")
	if err == nil {
		t.Fatal("expected an error for an unresolved resource URI")
	}
	handlerErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if handlerErr.Code != CodeResourceNotFound {
		t.Fatalf("expected CodeResourceNotFound, got %v", handlerErr.Code)
	}
}

func TestIsMethodNotFound(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Method not found", true},
		{"jsonrpc error -32601: unsupported", true},
		{"connection refused", false},
	}
	for _, tc := range cases {
		if got := isMethodNotFound(errString(tc.msg)); got != tc.want {
			t.Errorf("isMethodNotFound(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
