// Package server provides the public entry point for initializing the
// orchestration core's HTTP server: Tool Registry, Access Filter, Tool
// Invoker, Planner Loop, and Session Store wired together bottom-up, the
// way the teacher's pkg/server.NewWithConfig composes its own service
// graph before handing a router to main.go.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/agentoven/agentoven/toolcore/internal/access"
	"github.com/agentoven/agentoven/toolcore/internal/api"
	"github.com/agentoven/agentoven/toolcore/internal/api/handlers"
	"github.com/agentoven/agentoven/toolcore/internal/auth"
	"github.com/agentoven/agentoven/toolcore/internal/config"
	"github.com/agentoven/agentoven/toolcore/internal/invoker"
	"github.com/agentoven/agentoven/toolcore/internal/planner"
	"github.com/agentoven/agentoven/toolcore/internal/reasoning"
	"github.com/agentoven/agentoven/toolcore/internal/registry"
	"github.com/agentoven/agentoven/toolcore/internal/sessionstore"
	"github.com/agentoven/agentoven/toolcore/internal/telemetry"
	"github.com/agentoven/agentoven/toolcore/internal/toolclient"
	"github.com/agentoven/agentoven/toolcore/pkg/contracts"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized orchestration core.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Registry is exposed so the caller can trigger a manual refresh.
	Registry *registry.Registry

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components and returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes the orchestration core with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	clients := make(map[string]contracts.ToolServerClient, len(cfg.ProviderEndpoints))
	httpClient := &http.Client{Timeout: time.Duration(cfg.ToolCallTimeoutMs) * time.Millisecond}
	for id, baseURL := range cfg.ProviderEndpoints {
		clients[id] = toolclient.NewHTTPClient(id, baseURL, httpClient)
	}

	reg := registry.New(clients, cfg.ProviderEndpoints)
	reg.LoadAll(ctx)
	log.Info().Int("providers", len(clients)).Msg("tool registry loaded")

	accessFilter := access.New(cfg.DevMode)

	sessions := sessionstore.New()

	inv := invoker.New(
		reg,
		sessions,
		time.Duration(cfg.ToolCallTimeoutMs)*time.Millisecond,
		time.Duration(cfg.CacheTTLSec)*time.Second,
	)

	reasoningClient := reasoning.New(
		cfg.ReasoningAPIKey,
		cfg.ReasoningBaseURL,
		cfg.ReasoningModel,
		time.Duration(cfg.ReasoningTimeoutMs)*time.Millisecond,
	)
	plannerLoop := planner.New(reasoningClient, inv, cfg.MaxRounds)

	authChain := auth.NewProviderChain()
	authChain.RegisterProvider(auth.NewDevModeProvider(cfg.DevMode))
	authChain.RegisterProvider(auth.NewBypassProvider(cfg.BypassToken))
	authChain.RegisterProvider(auth.NewBearerProvider([]byte(cfg.TenantID), cfg.TenantID, cfg.Audience))

	h := handlers.New(reg, accessFilter, plannerLoop, sessions, cfg.SystemPrompt, time.Duration(cfg.TurnTimeoutMs)*time.Millisecond)
	router := api.NewRouter(h, authChain)

	return &Server{
		Handler:      router,
		Registry:     reg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
