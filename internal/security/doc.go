// Package security compiles the allowlist/blocklist policy and the
// user-disabled overlay used to gate every tool and package operation.
// A Policy is an immutable, swappable snapshot: config reload builds a new
// one and the caller atomically replaces the pointer in use, so in-flight
// evaluations never observe a half-updated policy.
package security
