// Package logging provides the process-wide structured logger used across
// supermcp. It wraps log/slog behind subsystem-tagged Debug/Info/Warn/Error
// functions and an Audit helper for security-sensitive events (credential
// writes, OAuth state issuance, token refresh).
//
// The logger is a singleton initialized once at startup via InitForCLI and
// passed around only implicitly through these package functions, matching
// the process-wide logging/security-policy pattern described for this kind
// of router: a single package-level pointer, set by InitForCLI (or lazily to
// a stderr logger on first use) without atomic operations, never looked up
// through a service locator.
package logging
