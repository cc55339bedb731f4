// Package contracts defines the narrow interfaces at the orchestration core's
// boundary: the remote Tool Server capability set and the reasoning model's
// function-calling surface. Modeling each provider as a value implementing
// this capability set means the registry holds a homogeneous collection keyed
// by id, with no inheritance hierarchy required.
package contracts

import (
	"context"

	"github.com/agentoven/agentoven/toolcore/pkg/models"
)

// ToolServerClient is the capability set every Tool Server implements: list
// its tools, and execute one of them.
type ToolServerClient interface {
	// ListTools issues a list-tools request per the Tool-Server Protocol.
	ListTools(ctx context.Context) ([]models.ToolSchema, error)

	// CallTool issues a call-tool request for name with the given arguments,
	// which must already carry an access_context sub-object.
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*ToolCallResponse, error)
}

// ToolCallResponse is the outcome of one call-tool RPC.
type ToolCallResponse struct {
	Result interface{}
	Error  *ToolCallError
}

// ToolCallError is a structured tool-level error payload (as opposed to a
// transport failure, which is returned as a Go error from CallTool).
type ToolCallError struct {
	Message string
	Kind    string
}

// ReasoningClient is the reasoning model, treated as a pure function from a
// conversation and tool surface to an assistant message and optional tool-call
// directives. The core preserves tool_call_id values verbatim; this is the
// only coupling to the model's conversation protocol.
type ReasoningClient interface {
	Complete(ctx context.Context, messages []models.ChatMessage, tools []models.ToolDescriptor) (*models.ReasoningResult, error)
}
