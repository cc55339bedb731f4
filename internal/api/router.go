package api

import (
	"net/http"

	"github.com/agentoven/agentoven/toolcore/internal/api/handlers"
	"github.com/agentoven/agentoven/toolcore/internal/api/middleware"
	"github.com/agentoven/agentoven/toolcore/pkg/contracts"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all API routes (spec §6.2).
func NewRouter(h *handlers.Handlers, authChain contracts.AuthProviderChain) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.NewAuthMiddleware(authChain).Handler)

	r.Get("/health", handlers.Health)
	r.Post("/chat", h.Chat)
	r.Get("/tools", h.Tools)
	r.Get("/providers", h.Providers)
	r.Get("/sessions", h.ListSessions)
	r.Get("/sessions/{sessionID}", h.GetSession)
	r.Post("/feedback", h.Feedback)

	return r
}
