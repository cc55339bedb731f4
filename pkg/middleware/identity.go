package middleware

import (
	"context"

	"github.com/agentoven/agentoven/toolcore/pkg/models"
)

type contextKey string

const accessContextKey contextKey = "access_context"

// SetAccessContext stores the authenticated AccessContext in the request
// context. Called by the auth middleware after a provider in the chain
// succeeds.
func SetAccessContext(ctx context.Context, ac *models.AccessContext) context.Context {
	if ac == nil {
		return ctx
	}
	return context.WithValue(ctx, accessContextKey, ac)
}

// GetAccessContext retrieves the authenticated AccessContext from the
// request context. Returns nil if none is set (unauthenticated request).
func GetAccessContext(ctx context.Context) *models.AccessContext {
	if v, ok := ctx.Value(accessContextKey).(*models.AccessContext); ok {
		return v
	}
	return nil
}
