package handlers

import (
	"context"
	"testing"

	"supermcp/internal/config"
)

func TestListToolPackagesReportsConfiguredPackages(t *testing.T) {
	pkgs := []*config.PackageDescriptor{{ID: "fs", Name: "fs", Transport: config.TransportStdio}}
	h, _, _ := newTestHandlers(t, pkgs, config.SecurityConfig{})

	result, err := h.ListToolPackages(context.Background(), ListToolPackagesParams{})
	if err != nil {
		t.Fatalf("ListToolPackages: %v", err)
	}
	if len(result.Packages) != 1 || result.Packages[0].ID != "fs" {
		t.Fatalf("expected one package fs, got %+v", result.Packages)
	}
	if result.ETag == "" {
		t.Fatal("expected a non-empty catalog etag")
	}
}

func TestListToolPackagesSkipsHiddenPackages(t *testing.T) {
	pkgs := []*config.PackageDescriptor{
		{ID: "fs", Name: "fs", Transport: config.TransportStdio},
		{ID: "secret", Name: "secret", Transport: config.TransportStdio, Visibility: config.VisibilityHidden},
	}
	h, _, _ := newTestHandlers(t, pkgs, config.SecurityConfig{})

	result, err := h.ListToolPackages(context.Background(), ListToolPackagesParams{})
	if err != nil {
		t.Fatalf("ListToolPackages: %v", err)
	}
	if len(result.Packages) != 1 || result.Packages[0].ID != "fs" {
		t.Fatalf("expected hidden package excluded, got %+v", result.Packages)
	}
}
