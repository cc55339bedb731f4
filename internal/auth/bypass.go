package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentoven/agentoven/toolcore/pkg/models"
)

// BypassProvider synthesizes an AccessContext from the request body's
// user_id with empty roles when BYPASS_TOKEN is enabled, keeping access
// filtering active (spec §6.4) unlike DevModeProvider.
type BypassProvider struct {
	enabled bool
}

// NewBypassProvider builds a bypass-token provider.
func NewBypassProvider(enabled bool) *BypassProvider {
	return &BypassProvider{enabled: enabled}
}

func (p *BypassProvider) Name() string  { return "bypass" }
func (p *BypassProvider) Enabled() bool { return p.enabled }

type bypassBody struct {
	UserID string `json:"user_id"`
}

// Authenticate reads user_id from the JSON request body without consuming it
// for downstream handlers.
func (p *BypassProvider) Authenticate(_ context.Context, r *http.Request) (*models.AccessContext, error) {
	if r.Body == nil {
		return &models.AccessContext{}, nil
	}

	raw, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return &models.AccessContext{}, nil
	}

	var body bypassBody
	_ = json.Unmarshal(raw, &body)

	return &models.AccessContext{UserID: body.UserID, Roles: []string{}}, nil
}
