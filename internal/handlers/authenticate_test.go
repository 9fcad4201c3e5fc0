package handlers

import (
	"context"
	"testing"

	"supermcp/internal/config"
)

func TestAuthenticateUnknownPackage(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil, config.SecurityConfig{})
	_, err := h.Authenticate(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected an error for an unknown package")
	}
	handlerErr, ok := err.(*Error)
	if !ok || handlerErr.Code != CodePackageNotFound {
		t.Fatalf("expected CodePackageNotFound, got %v", err)
	}
}

func TestAuthenticateNonOAuthPackage(t *testing.T) {
	pkgs := []*config.PackageDescriptor{{ID: "fs", Name: "fs", OAuth: false}}
	h, _, _ := newTestHandlers(t, pkgs, config.SecurityConfig{})
	_, err := h.Authenticate(context.Background(), "fs")
	if err == nil {
		t.Fatal("expected an error for a non-oauth package")
	}
	handlerErr, ok := err.(*Error)
	if !ok || handlerErr.Code != CodeInvalidParams {
		t.Fatalf("expected CodeInvalidParams, got %v", err)
	}
}
