// Package models holds the data-model entities shared across the orchestration
// core: tool providers and schemas, access contexts, sessions and turns,
// execution lineage, feedback, and the cache substrate.
package models

import "time"

// ── Tool Registry ───────────────────────────────────────────

// ToolProvider is a remote Tool Server known to the core.
type ToolProvider struct {
	ID      string `json:"id"`
	BaseURL string `json:"base_url"`
	Healthy bool   `json:"healthy"`
}

// ToolSchema describes a single tool exposed by a provider.
type ToolSchema struct {
	Name         string                 `json:"name"`
	ProviderID   string                 `json:"provider_id"`
	Description  string                 `json:"description"`
	Parameters   map[string]interface{} `json:"parameters"`
	AllowedRoles []string               `json:"allowed_roles,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToolDescriptor is the tool surface representation handed to the reasoning
// model's function-calling schema.
type ToolDescriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ── Access Context ──────────────────────────────────────────

// AccessContext carries the caller's identity and authorization data. It is
// built once per request and never mutated for the lifetime of the turn.
type AccessContext struct {
	UserID string            `json:"user_id"`
	Roles  []string          `json:"roles"`
	Scope  map[string]string `json:"scope,omitempty"`
}

// HasRole reports whether the context carries the given role.
func (a AccessContext) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the context carries the synthetic admin role used by
// dev-mode bypass.
func (a AccessContext) IsAdmin() bool {
	return a.HasRole("admin")
}

// ── Session / Turn ──────────────────────────────────────────

// Session is a user's ongoing conversation with the core.
type Session struct {
	ID        string                 `json:"session_id"`
	UserID    string                 `json:"user_id"`
	Turns     []Turn                 `json:"turns"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// SessionSummary is the listing projection of a Session.
type SessionSummary struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	TurnCount int       `json:"turn_count"`
}

// Turn is one user-message / assistant-response cycle.
type Turn struct {
	ID        string            `json:"turn_id"`
	Number    int               `json:"turn_number"`
	UserMsg   string            `json:"user_message"`
	Assistant string            `json:"assistant_response"`
	Metadata  ExecutionMetadata `json:"metadata"`
	Success   bool              `json:"success"`
	CreatedAt time.Time         `json:"created_at"`
}

// ExecutionMetadata summarizes a turn's planner-loop execution.
type ExecutionMetadata struct {
	Rounds        int             `json:"rounds"`
	ProvidersUsed []string        `json:"providers_used"`
	DurationMs    int64           `json:"execution_time_ms"`
	Lineage       []LineageRecord `json:"lineage"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Outcome is the result classification of a single tool call.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeCached  Outcome = "cached"
)

// LineageRecord is one completed tool call within a turn.
type LineageRecord struct {
	Step          int                    `json:"step"`
	ToolName      string                 `json:"tool_name"`
	ProviderID    string                 `json:"provider_id"`
	Arguments     map[string]interface{} `json:"arguments"`
	ResultSummary string                 `json:"result_summary"`
	Result        interface{}            `json:"result,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Outcome       Outcome                `json:"outcome"`
	ErrorKind     string                 `json:"error_kind,omitempty"`
	DurationMs    int64                  `json:"duration_ms"`
}

// Feedback is independent per-turn user feedback.
type Feedback struct {
	TurnID    string    `json:"turn_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ── Reasoning conversation ──────────────────────────────────

// ChatRole is the role of a conversation message.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleTool      ChatRole = "tool"
)

// ChatMessage is one message in the conversation threaded to the reasoning model.
type ChatMessage struct {
	Role       ChatRole   `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a single tool invocation directive emitted by the reasoning model.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ReasoningResult is what the reasoning model returns for one round.
type ReasoningResult struct {
	Content   string
	ToolCalls []ToolCall
}

// ── Cache substrate ─────────────────────────────────────────

// CacheEntry is a cached tool-call result.
type CacheEntry struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	ExpiresAt time.Time   `json:"expires_at"`
}
