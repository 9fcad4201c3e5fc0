package oauthprovider

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCEChallenge is a generated verifier/challenge pair for one
// authorization attempt. The verifier is transient: it lives only in
// memory for the duration of the flow and is never persisted.
type PKCEChallenge struct {
	Verifier  string
	Challenge string
	Method    string
}

// GeneratePKCE produces a new S256 PKCE challenge: a 32-byte random
// verifier, base64url-encoded, challenged via SHA-256.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifier, err := randomURLSafe(32)
	if err != nil {
		return nil, fmt.Errorf("oauthprovider: generating pkce verifier: %w", err)
	}
	sum := sha256.Sum256([]byte(verifier))
	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
		Method:    "S256",
	}, nil
}

// GenerateState returns a fresh 256-bit CSRF state nonce, base64url-encoded.
func GenerateState() (string, error) {
	s, err := randomURLSafe(32)
	if err != nil {
		return "", fmt.Errorf("oauthprovider: generating state: %w", err)
	}
	return s, nil
}

func randomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
