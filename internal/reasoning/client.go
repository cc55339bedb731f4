// Package reasoning provides a thin contracts.ReasoningClient implementation
// against an OpenAI-compatible function-calling chat completion API. The
// reasoning model itself is explicitly out of scope (spec §1) — this is only
// the narrow client boundary the Planner Loop calls through.
//
// The wire types are reused from github.com/sashabaranov/go-openai (seen in
// haasonsaas-nexus and janhq-server/services/llm-api) rather than
// hand-rolled, since that library already defines the OpenAI tool-calling
// request/response shape this spec's reasoning model assumes. The HTTP
// dispatch itself follows the teacher's internal/router.ModelRouter
// single-provider-call idiom (build request, POST with context timeout,
// decode response) rather than the teacher's multi-provider
// fallback/cost-routing logic, which has no SPEC_FULL.md component to serve.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentoven/agentoven/toolcore/pkg/models"

	openai "github.com/sashabaranov/go-openai"
)

// Client calls a single configured OpenAI-compatible endpoint.
type Client struct {
	inner   *openai.Client
	model   string
	timeout time.Duration
}

// New builds a reasoning client against baseURL (empty means the default
// OpenAI endpoint) using apiKey and the given model name. timeout bounds
// every Complete call (spec §5, §6.3 REASONING_CALL_TIMEOUT_MS); zero means
// no additional deadline is imposed beyond the caller's context.
func New(apiKey, baseURL, model string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{inner: openai.NewClientWithConfig(cfg), model: model, timeout: timeout}
}

// Complete submits the conversation and tool surface and returns the
// model's assistant message and any tool-call directives, preserving
// tool_call_id values verbatim (spec §9).
func (c *Client) Complete(ctx context.Context, messages []models.ChatMessage, tools []models.ToolDescriptor) (*models.ReasoningResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(tools),
	}

	resp, err := c.inner.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("reasoning model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("reasoning model returned no choices")
	}

	choice := resp.Choices[0].Message
	result := &models.ReasoningResult{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		var args map[string]interface{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]interface{}{}
			}
		}
		result.ToolCalls = append(result.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return result, nil
}

func toOpenAIMessages(messages []models.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			argsJSON, _ := json.Marshal(tc.Arguments)
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(argsJSON),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(tools []models.ToolDescriptor) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
