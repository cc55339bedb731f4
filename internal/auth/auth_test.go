package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret []byte, payload bearerPayload) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	payloadB64 := base64.RawURLEncoding.EncodeToString(raw)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payloadB64))
	sigB64 := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return payloadB64 + "." + sigB64
}

func TestDevModeProvider_AlwaysAdmin(t *testing.T) {
	p := NewDevModeProvider(true)
	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	ctx, err := p.Authenticate(req.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, "dev", ctx.UserID)
	assert.True(t, ctx.IsAdmin())
}

func TestBypassProvider_ReadsUserIDWithoutConsumingBody(t *testing.T) {
	p := NewBypassProvider(true)
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_id":"alice"}`))

	ctx, err := p.Authenticate(req.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, "alice", ctx.UserID)
	assert.Empty(t, ctx.Roles)

	body, _ := readAll(req)
	assert.JSONEq(t, `{"user_id":"alice"}`, body)
}

func readAll(req *http.Request) (string, error) {
	buf := make([]byte, 1024)
	n, err := req.Body.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}
	return string(buf[:n]), nil
}

func TestBearerProvider_ValidTokenReturnsAccessContext(t *testing.T) {
	secret := []byte("shared-secret")
	p := NewBearerProvider(secret, "tenant-1", "core")
	token := signToken(t, secret, bearerPayload{
		Issuer: "tenant-1", Audience: "core", Subject: "u1", Roles: []string{"analyst"},
		Exp: time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	ctx, err := p.Authenticate(req.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, "u1", ctx.UserID)
	assert.Equal(t, []string{"analyst"}, ctx.Roles)
}

func TestBearerProvider_NoHeaderTriesNextProvider(t *testing.T) {
	p := NewBearerProvider([]byte("secret"), "tenant-1", "")
	req := httptest.NewRequest(http.MethodGet, "/tools", nil)

	ctx, err := p.Authenticate(req.Context(), req)
	require.NoError(t, err)
	assert.Nil(t, ctx)
}

func TestBearerProvider_IssuerMismatchRejected(t *testing.T) {
	secret := []byte("shared-secret")
	p := NewBearerProvider(secret, "tenant-1", "")
	token := signToken(t, secret, bearerPayload{Issuer: "other-tenant", Subject: "u1", Exp: time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err := p.Authenticate(req.Context(), req)
	assert.Error(t, err)
}

func TestBearerProvider_ExpiredTokenRejected(t *testing.T) {
	secret := []byte("shared-secret")
	p := NewBearerProvider(secret, "tenant-1", "")
	token := signToken(t, secret, bearerPayload{Issuer: "tenant-1", Subject: "u1", Exp: time.Now().Add(-time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err := p.Authenticate(req.Context(), req)
	assert.Error(t, err)
}

func TestBearerProvider_TamperedSignatureRejected(t *testing.T) {
	secret := []byte("shared-secret")
	p := NewBearerProvider(secret, "tenant-1", "")
	token := signToken(t, secret, bearerPayload{Issuer: "tenant-1", Subject: "u1", Exp: time.Now().Add(time.Hour).Unix()})
	tampered := token[:len(token)-2] + "xx"

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set("Authorization", "Bearer "+tampered)

	_, err := p.Authenticate(req.Context(), req)
	assert.Error(t, err)
}

func TestProviderChain_FirstNonNilWins(t *testing.T) {
	chain := NewProviderChain()
	chain.RegisterProvider(NewBypassProvider(false)) // disabled, skipped
	chain.RegisterProvider(NewDevModeProvider(true))

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	ctx, err := chain.Authenticate(req.Context(), req)
	require.NoError(t, err)
	require.NotNil(t, ctx)
	assert.Equal(t, "dev", ctx.UserID)
}

func TestProviderChain_NoProviderAcceptsReturnsNil(t *testing.T) {
	chain := NewProviderChain()
	chain.RegisterProvider(NewBearerProvider([]byte("s"), "tenant-1", ""))

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	ctx, err := chain.Authenticate(req.Context(), req)
	require.NoError(t, err)
	assert.Nil(t, ctx)
}
