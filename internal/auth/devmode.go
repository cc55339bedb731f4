package auth

import (
	"context"
	"net/http"

	"github.com/agentoven/agentoven/toolcore/pkg/models"
)

// DevModeProvider synthesizes an admin AccessContext for every request when
// DEV_MODE is enabled (spec §6.4), bypassing token validation entirely.
// Adapted from the teacher's APIKeyProvider shape (a stateless, always-first
// provider in the chain) but with no key material to check.
type DevModeProvider struct {
	enabled bool
}

// NewDevModeProvider builds a dev-mode provider; enabled mirrors the
// DEV_MODE configuration value.
func NewDevModeProvider(enabled bool) *DevModeProvider {
	return &DevModeProvider{enabled: enabled}
}

func (p *DevModeProvider) Name() string  { return "devmode" }
func (p *DevModeProvider) Enabled() bool { return p.enabled }

// Authenticate always succeeds with a synthetic admin identity when enabled.
func (p *DevModeProvider) Authenticate(_ context.Context, _ *http.Request) (*models.AccessContext, error) {
	return &models.AccessContext{
		UserID: "dev",
		Roles:  []string{"admin"},
	}, nil
}
