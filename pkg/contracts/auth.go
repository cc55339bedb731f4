// Authentication interfaces for the pluggable auth layer that builds an
// AccessContext from an inbound HTTP request.
package contracts

import (
	"context"
	"net/http"

	"github.com/agentoven/agentoven/toolcore/pkg/models"
)

// AuthProvider authenticates an HTTP request and returns an AccessContext.
// Each provider implements one authentication strategy (dev-mode, bypass
// token, bearer/OIDC).
//
// The chain pattern:
//   - Return (*AccessContext, nil) → authenticated, stop chain
//   - Return (nil, nil) → this provider doesn't handle this request, try next
//   - Return (nil, error) → authentication was attempted but failed, reject
type AuthProvider interface {
	// Name returns the provider identifier (e.g. "devmode", "bypass", "bearer").
	Name() string

	// Authenticate inspects the request and returns an AccessContext.
	Authenticate(ctx context.Context, r *http.Request) (*models.AccessContext, error)

	// Enabled returns whether this provider is configured and active.
	Enabled() bool
}

// AuthProviderChain tries providers in priority order until one returns an
// AccessContext.
type AuthProviderChain interface {
	// Authenticate walks the chain of providers in order.
	// Returns the first successful AccessContext, or (nil, nil) if no
	// provider matched.
	Authenticate(ctx context.Context, r *http.Request) (*models.AccessContext, error)

	// RegisterProvider adds a provider to the end of the chain.
	// Providers are tried in registration order.
	RegisterProvider(provider AuthProvider)
}
