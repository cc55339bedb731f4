// Package auth provides the authentication provider chain that builds an
// AccessContext for each inbound request (spec §6.4).
//
// Ships three providers:
//   - DevModeProvider — synthesizes an admin AccessContext when DEV_MODE is set
//   - BypassProvider — synthesizes an AccessContext from the request body's
//     user_id with empty roles when BYPASS_TOKEN is set
//   - BearerProvider — validates an OIDC-style bearer token
//
// Grounded on the teacher's internal/auth/chain.go, generalized from
// producing a contracts.Identity (with a single Role field and a Kitchen
// tenant scope) to producing a models.AccessContext (with a Roles set and no
// tenant concept, since this spec has no multi-tenancy analog).
package auth

import (
	"context"
	"net/http"
	"sync"

	"github.com/agentoven/agentoven/toolcore/pkg/contracts"
	"github.com/agentoven/agentoven/toolcore/pkg/models"

	"github.com/rs/zerolog/log"
)

// ProviderChain implements contracts.AuthProviderChain, walking registered
// providers in order until one returns an AccessContext.
type ProviderChain struct {
	mu        sync.RWMutex
	providers []contracts.AuthProvider
}

// NewProviderChain creates an empty auth provider chain.
func NewProviderChain() *ProviderChain {
	return &ProviderChain{providers: make([]contracts.AuthProvider, 0)}
}

// RegisterProvider adds a provider to the end of the chain.
func (c *ProviderChain) RegisterProvider(provider contracts.AuthProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers = append(c.providers, provider)
	log.Info().Str("provider", provider.Name()).Bool("enabled", provider.Enabled()).Msg("auth provider registered")
}

// Authenticate walks the chain of providers in order.
//
// Contract:
//   - (*AccessContext, nil) → authenticated, stop walking
//   - (nil, nil) → this provider doesn't handle this request, try next
//   - (nil, error) → auth attempted but failed, reject immediately
func (c *ProviderChain) Authenticate(ctx context.Context, r *http.Request) (*models.AccessContext, error) {
	c.mu.RLock()
	providers := make([]contracts.AuthProvider, len(c.providers))
	copy(providers, c.providers)
	c.mu.RUnlock()

	for _, p := range providers {
		if !p.Enabled() {
			continue
		}
		identity, err := p.Authenticate(ctx, r)
		if err != nil {
			log.Debug().Str("provider", p.Name()).Err(err).Msg("auth provider rejected request")
			return nil, err
		}
		if identity != nil {
			log.Debug().Str("provider", p.Name()).Str("user_id", identity.UserID).Msg("request authenticated")
			return identity, nil
		}
	}
	return nil, nil
}

// ListProviders returns the names of all registered providers (for diagnostics).
func (c *ProviderChain) ListProviders() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}
