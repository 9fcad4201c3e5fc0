package mcpclient

import (
	"testing"
	"time"
)

func TestConnectTimeoutOrDefaultFallsBack(t *testing.T) {
	SetDefaultConnectTimeout(0)
	if got := connectTimeoutOrDefault(); got != defaultHTTPConnectTimeout {
		t.Fatalf("expected default %v, got %v", defaultHTTPConnectTimeout, got)
	}
}

func TestConnectTimeoutOrDefaultHonorsOverride(t *testing.T) {
	SetDefaultConnectTimeout(45 * time.Second)
	defer SetDefaultConnectTimeout(0)
	if got := connectTimeoutOrDefault(); got != 45*time.Second {
		t.Fatalf("expected overridden 45s, got %v", got)
	}
}
