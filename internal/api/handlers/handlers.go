// Package handlers implements the Core HTTP Surface (spec §6.2): /chat,
// /tools, /providers, /sessions, /feedback, /health. Grounded on the
// teacher's internal/api/handlers.Handlers (a struct of dependencies plus
// respondJSON/respondError helpers) but built around the five orchestration
// components instead of the teacher's Store/Router/MCPGateway/Workflow
// surface.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/agentoven/agentoven/toolcore/internal/access"
	"github.com/agentoven/agentoven/toolcore/internal/planner"
	"github.com/agentoven/agentoven/toolcore/internal/registry"
	"github.com/agentoven/agentoven/toolcore/internal/sessionstore"
	pkgmw "github.com/agentoven/agentoven/toolcore/pkg/middleware"
	"github.com/agentoven/agentoven/toolcore/pkg/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Registry *registry.Registry
	Access   *access.Filter
	Planner  *planner.Loop
	Sessions *sessionstore.Store

	SystemPrompt string

	// TurnTimeout bounds the whole Chat turn (spec §5, §6.3 TURN_TIMEOUT_MS):
	// reasoning rounds and tool dispatch within it inherit this deadline via
	// the request context, failing the turn on expiry rather than running
	// unbounded.
	TurnTimeout time.Duration
}

// New creates a Handlers instance with all orchestration dependencies wired.
func New(reg *registry.Registry, af *access.Filter, pl *planner.Loop, sess *sessionstore.Store, systemPrompt string, turnTimeout time.Duration) *Handlers {
	return &Handlers{Registry: reg, Access: af, Planner: pl, Sessions: sess, SystemPrompt: systemPrompt, TurnTimeout: turnTimeout}
}

type chatMessageInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	SessionID string             `json:"session_id,omitempty"`
	Messages  []chatMessageInput `json:"messages"`
}

type chatResponse struct {
	SessionID     string               `json:"session_id"`
	Response      string               `json:"response"`
	Success       bool                 `json:"success"`
	Rounds        int                  `json:"rounds"`
	ProvidersUsed []string             `json:"providers_used"`
	Lineage       []models.LineageRecord `json:"lineage"`
	Metadata      chatResponseMetadata `json:"metadata"`
}

type chatResponseMetadata struct {
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	TurnID          string    `json:"turn_id"`
	Timestamp       time.Time `json:"timestamp"`
}

// Chat implements POST /chat (spec §6.2). Only the last user message in the
// request body is treated as the current input; prior messages are ignored
// in favor of the server-side session history.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	accessCtx := pkgmw.GetAccessContext(r.Context())
	if accessCtx == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		respondError(w, http.StatusBadRequest, "at least one message is required")
		return
	}

	userMessage := lastUserMessage(req.Messages)
	if userMessage == "" {
		respondError(w, http.StatusBadRequest, "no user message found")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	ctx := r.Context()
	if h.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.TurnTimeout)
		defer cancel()
	}

	// accessCtx.UserID is the identity the auth chain validated, never the
	// request body's user_id — a caller must not be able to read or append
	// to another user's session by naming it in the body (spec §4.5
	// ownership check).
	var history []models.ChatMessage
	existing, err := h.Sessions.LoadSession(ctx, accessCtx.UserID, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		history = historyFromSession(existing)
	}

	all := h.Registry.Surface()
	surface := h.Access.Project(all, *accessCtx)

	result := h.Planner.Run(ctx, h.SystemPrompt, history, userMessage, surface, *accessCtx)

	turn := models.Turn{
		UserMsg:   userMessage,
		Assistant: result.Response,
		Success:   result.Success,
		Metadata:  result.Metadata,
	}
	stored, err := h.Sessions.AppendTurn(ctx, accessCtx.UserID, sessionID, turn)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		SessionID:     sessionID,
		Response:      result.Response,
		Success:       result.Success,
		Rounds:        result.Metadata.Rounds,
		ProvidersUsed: result.Metadata.ProvidersUsed,
		Lineage:       result.Metadata.Lineage,
		Metadata: chatResponseMetadata{
			ExecutionTimeMs: result.Metadata.DurationMs,
			TurnID:          stored.ID,
			Timestamp:       result.Metadata.Timestamp,
		},
	})
}

// Tools implements GET /tools.
func (h *Handlers) Tools(w http.ResponseWriter, r *http.Request) {
	accessCtx := pkgmw.GetAccessContext(r.Context())
	if accessCtx == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	surface := h.Access.Project(h.Registry.Surface(), *accessCtx)
	respondJSON(w, http.StatusOK, map[string]interface{}{"tools": surface.Descriptors})
}

// Providers implements GET /providers.
func (h *Handlers) Providers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"providers": h.Registry.Providers()})
}

// ListSessions implements GET /sessions.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	accessCtx := pkgmw.GetAccessContext(r.Context())
	if accessCtx == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	summaries, err := h.Sessions.ListSessions(r.Context(), accessCtx.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": summaries})
}

// GetSession implements GET /sessions/{id}.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	accessCtx := pkgmw.GetAccessContext(r.Context())
	if accessCtx == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.Sessions.LoadSession(r.Context(), accessCtx.UserID, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if session == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

type feedbackRequest struct {
	TurnID  string `json:"turn_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// Feedback implements POST /feedback.
func (h *Handlers) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TurnID == "" || req.Rating < 1 || req.Rating > 5 {
		respondError(w, http.StatusBadRequest, "turn_id and a rating between 1 and 5 are required")
		return
	}

	fb := models.Feedback{
		TurnID:    req.TurnID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Timestamp: time.Now().UTC(),
	}
	if err := h.Sessions.PutFeedback(r.Context(), fb); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, fb)
}

// Health implements GET /health (spec §6.2): liveness probe, 200 unconditionally.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func lastUserMessage(messages []chatMessageInput) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == string(models.RoleUser) {
			return messages[i].Content
		}
	}
	return ""
}

func historyFromSession(session *models.Session) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(session.Turns)*2)
	for _, t := range session.Turns {
		out = append(out,
			models.ChatMessage{Role: models.RoleUser, Content: t.UserMsg},
			models.ChatMessage{Role: models.RoleAssistant, Content: t.Assistant},
		)
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
