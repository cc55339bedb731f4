package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agentoven/agentoven/toolcore/pkg/models"
)

// BearerProvider validates OIDC-style bearer tokens carrying an issuer,
// audience, subject and roles claim, checked against the deployment's
// TENANT_ID and AUDIENCE (spec §6.4).
//
// Token format and signing scheme are adapted from the teacher's
// ServiceAccountProvider: base64(JSON payload) + "." + base64(HMAC-SHA256
// signature). The payload shape is generalized from the teacher's
// single-role/single-kitchen claims ({sub, kitchen, role, exp}) to a
// multi-role, tenant-scoped claim set ({iss, aud, sub, roles, exp}), since
// this spec has no kitchen concept and roles are a set rather than a
// singleton (spec §3 AccessContext).
type BearerProvider struct {
	secret   []byte
	issuer   string
	audience string
	enabled  bool
}

type bearerPayload struct {
	Issuer   string   `json:"iss"`
	Audience string   `json:"aud,omitempty"`
	Subject  string   `json:"sub"`
	Roles    []string `json:"roles"`
	Exp      int64    `json:"exp"`
}

// NewBearerProvider builds a bearer-token provider. secret is the HMAC
// signing key; issuer is normally the deployment's TENANT_ID; audience may
// be empty to skip audience validation.
func NewBearerProvider(secret []byte, issuer, audience string) *BearerProvider {
	return &BearerProvider{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		enabled:  len(secret) > 0 && issuer != "",
	}
}

func (p *BearerProvider) Name() string  { return "bearer" }
func (p *BearerProvider) Enabled() bool { return p.enabled }

// Authenticate validates the bearer token from the Authorization header.
// Returns (nil, nil) if no bearer token is present so the chain can try the
// next provider; returns (nil, error) if a token is present but invalid.
func (p *BearerProvider) Authenticate(_ context.Context, r *http.Request) (*models.AccessContext, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, nil
	}

	payload, err := p.validateToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid bearer token: %w", err)
	}

	return &models.AccessContext{
		UserID: payload.Subject,
		Roles:  payload.Roles,
	}, nil
}

func (p *BearerProvider) validateToken(token string) (*bearerPayload, error) {
	payloadB64, sigB64, ok := splitToken(token)
	if !ok {
		return nil, fmt.Errorf("malformed token: expected payload.signature")
	}

	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(payloadB64))
	expectedSig := mac.Sum(nil)

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if !hmac.Equal(sig, expectedSig) {
		return nil, fmt.Errorf("signature mismatch")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, fmt.Errorf("invalid payload encoding: %w", err)
	}

	var payload bearerPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("invalid payload JSON: %w", err)
	}

	if payload.Exp > 0 && time.Now().Unix() > payload.Exp {
		return nil, fmt.Errorf("token expired")
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("missing subject")
	}
	if payload.Issuer != p.issuer {
		return nil, fmt.Errorf("issuer mismatch")
	}
	if p.audience != "" && payload.Audience != p.audience {
		return nil, fmt.Errorf("audience mismatch")
	}

	return &payload, nil
}

func splitToken(token string) (payload, sig string, ok bool) {
	for i := len(token) - 1; i >= 0; i-- {
		if token[i] == '.' {
			return token[:i], token[i+1:], true
		}
	}
	return "", "", false
}
