package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/agentoven/agentoven/toolcore/pkg/contracts"
	pkgmw "github.com/agentoven/agentoven/toolcore/pkg/middleware"
	"github.com/rs/zerolog/log"
)

// AuthMiddleware authenticates every non-public request via the pluggable
// AuthProviderChain and stores the resulting AccessContext in context.
// Every route except /health requires an AccessContext (spec §6.4) — unlike
// the teacher, there is no requireAuth toggle, since every request here
// needs an AccessContext to run the Access Filter.
type AuthMiddleware struct {
	chain contracts.AuthProviderChain
}

// NewAuthMiddleware creates the auth middleware.
func NewAuthMiddleware(chain contracts.AuthProviderChain) *AuthMiddleware {
	return &AuthMiddleware{chain: chain}
}

// Handler returns the HTTP handler middleware that authenticates requests.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAuthPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		accessCtx, err := am.chain.Authenticate(r.Context(), r)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			writeUnauthorized(w, "authentication_failed", err.Error())
			return
		}
		if accessCtx == nil {
			writeUnauthorized(w, "authentication_required", "no auth provider in the chain accepted this request")
			return
		}

		ctx := pkgmw.SetAccessContext(r.Context(), accessCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="agentoven"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

// isAuthPublicPath returns true for paths that should skip authentication.
func isAuthPublicPath(path string) bool {
	return path == "/health"
}
