package handlers

import (
	"context"

	"github.com/google/uuid"

	"supermcp/internal/mcpclient"
	"supermcp/pkg/logging"
)

// AuthenticateResult is authenticate's output.
type AuthenticateResult struct {
	Status  string // "authenticated" | "authenticated (verification pending)" | "error"
	Message string
}

// Authenticate drives the interactive OAuth flow for an HTTP+oauth package.
// The flow itself (metadata discovery, dynamic client registration, PKCE,
// the loopback callback server, code exchange) lives entirely in
// oauthprovider.FullFlowProvider; this handler only resolves the package,
// confirms it is OAuth-shaped, runs the flow, and verifies the result with a
// bounded health check.
func (h *Handlers) Authenticate(ctx context.Context, packageID string) (*AuthenticateResult, error) {
	pkg := h.findPackage(packageID)
	if pkg == nil {
		return nil, newError(CodePackageNotFound, "package %q not found", packageID)
	}
	if !pkg.OAuth {
		return nil, newError(CodeInvalidParams, "package %q is not configured for oauth", packageID)
	}

	client, err := h.Registry.GetClient(ctx, packageID)
	if err != nil {
		return nil, classifyRegistryError(err)
	}

	authenticator, ok := client.(mcpclient.Authenticator)
	if !ok {
		return nil, newError(CodeCapabilityNotSupported, "package %q's transport does not support interactive authentication", packageID)
	}

	correlationID := uuid.New().String()
	if err := authenticator.Authenticate(ctx); err != nil {
		logging.Audit(logging.AuditEvent{Action: "authenticate", Outcome: "failure", PackageID: packageID, Error: err.Error(), CorrelationID: correlationID})
		return &AuthenticateResult{Status: "error", Message: err.Error()}, nil
	}
	logging.Audit(logging.AuditEvent{Action: "authenticate", Outcome: "success", PackageID: packageID, CorrelationID: correlationID})

	verifyTimeout := h.Config.VerifyTimeout
	if verifyTimeout <= 0 {
		verifyTimeout = DefaultConfig().VerifyTimeout
	}
	verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	if client.HealthCheck(verifyCtx) == mcpclient.HealthOK {
		h.Catalog.ClearPackage(packageID)
		return &AuthenticateResult{Status: "authenticated"}, nil
	}
	return &AuthenticateResult{Status: "authenticated (verification pending)"}, nil
}
