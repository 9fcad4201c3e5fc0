// Package credentials persists OAuth client registrations and token sets to
// disk, two JSON files per package under a directory mode 0700 with files
// mode 0600. Writes are best-effort: callers log and continue rather than
// fail the surrounding operation when a write fails, since a credential
// write failure should not block an otherwise-successful OAuth exchange.
// PKCE verifiers and state nonces are deliberately not modeled here — they
// are single-use, transient values that live only in the OAuth provider's
// in-flight request state, never on disk.
package credentials
