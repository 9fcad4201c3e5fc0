package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"supermcp/pkg/logging"
)

// Scope names a selective invalidation target.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeClient   Scope = "client"
	ScopeTokens   Scope = "tokens"
	ScopeVerifier Scope = "verifier"
)

// ClientRecord is the persisted shape of a package's OAuth client
// registration plus the callback port that was in use when it was issued.
type ClientRecord struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	CallbackPort int    `json:"callback_port,omitempty"`
}

// TokenRecord is the persisted shape of a package's current token set.
type TokenRecord struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// IsExpired reports whether the access token is past its expiry, or past
// the given safety margin before it.
func (t *TokenRecord) IsExpired(margin time.Duration) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(margin).After(*t.ExpiresAt)
}

// Store reads and writes credential records under a base directory, one
// pair of files per package id.
type Store struct {
	dir string
}

// DefaultDir returns $HOME/.super-mcp/oauth-tokens.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".super-mcp", "oauth-tokens"), nil
}

// NewStore creates (if needed) the base directory with mode 0700 and
// returns a Store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("credentials: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

func sanitizeID(packageID string) string {
	return unsafeFilenameChars.ReplaceAllString(packageID, "_")
}

func (s *Store) clientPath(packageID string) string {
	return filepath.Join(s.dir, sanitizeID(packageID)+"_client")
}

func (s *Store) tokensPath(packageID string) string {
	return filepath.Join(s.dir, sanitizeID(packageID)+"_tokens")
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readJSONFile(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// LoadClient reads the client registration for packageID. The second
// return value is false if no registration has been saved yet.
func (s *Store) LoadClient(packageID string) (*ClientRecord, bool, error) {
	var rec ClientRecord
	ok, err := readJSONFile(s.clientPath(packageID), &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return &rec, true, nil
}

// SaveClient persists a client registration. Failures are logged here;
// callers treat the write as best-effort and do not abort the surrounding
// OAuth flow on error.
func (s *Store) SaveClient(packageID string, rec *ClientRecord) error {
	if err := writeJSONFile(s.clientPath(packageID), rec); err != nil {
		logging.Warn("credentials", "failed to save client registration for %q: %v", packageID, err)
		return err
	}
	logging.Audit(logging.AuditEvent{
		Action:    "credential_write",
		Outcome:   "success",
		PackageID: packageID,
		Details:   fmt.Sprintf("scope=client has_secret=%t", rec.ClientSecret != ""),
	})
	return nil
}

// LoadTokens reads the token set for packageID. The second return value is
// false if no tokens have been saved yet.
func (s *Store) LoadTokens(packageID string) (*TokenRecord, bool, error) {
	var rec TokenRecord
	ok, err := readJSONFile(s.tokensPath(packageID), &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return &rec, true, nil
}

// SaveTokens persists a token set. Failures are logged here; callers treat
// the write as best-effort.
func (s *Store) SaveTokens(packageID string, rec *TokenRecord) error {
	if err := writeJSONFile(s.tokensPath(packageID), rec); err != nil {
		logging.Warn("credentials", "failed to save tokens for %q: %v", packageID, err)
		return err
	}
	logging.Audit(logging.AuditEvent{
		Action:    "credential_write",
		Outcome:   "success",
		PackageID: packageID,
		Details:   fmt.Sprintf("scope=tokens has_refresh=%t", rec.RefreshToken != ""),
	})
	return nil
}

// Invalidate deletes the on-disk record(s) named by scope. ScopeVerifier is
// a no-op here: PKCE verifiers are never persisted, so there is nothing on
// disk to remove; it exists purely so callers can invalidate "everything
// related to this auth attempt" uniformly regardless of scope.
func (s *Store) Invalidate(packageID string, scope Scope) error {
	var err error
	switch scope {
	case ScopeAll:
		err = errors.Join(removeIfExists(s.clientPath(packageID)), removeIfExists(s.tokensPath(packageID)))
	case ScopeClient:
		err = removeIfExists(s.clientPath(packageID))
	case ScopeTokens:
		err = removeIfExists(s.tokensPath(packageID))
	case ScopeVerifier:
		// nothing persisted
	default:
		return fmt.Errorf("credentials: unknown scope %q", scope)
	}
	logging.Audit(logging.AuditEvent{
		Action:    "credential_invalidate",
		Outcome:   outcomeOf(err),
		PackageID: packageID,
		Details:   fmt.Sprintf("scope=%s", scope),
	})
	return err
}

func outcomeOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// CheckAndInvalidateOnPortMismatch compares the saved callback port on the
// client record to the one actually in use this run; on mismatch it
// invalidates the client and token records so the next authorization flow
// performs fresh dynamic client registration against the correct redirect
// URI, rather than reusing a client_id registered for a now-stale port.
func (s *Store) CheckAndInvalidateOnPortMismatch(packageID string, currentPort int) (bool, error) {
	rec, ok, err := s.LoadClient(packageID)
	if err != nil || !ok || rec.CallbackPort == 0 || rec.CallbackPort == currentPort {
		return false, err
	}
	if err := s.Invalidate(packageID, ScopeAll); err != nil {
		return true, err
	}
	return true, nil
}
