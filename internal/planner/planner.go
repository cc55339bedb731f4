// Package planner implements the Planner Loop (spec §4.4): the bounded
// multi-round function-calling conversation with the reasoning model,
// concurrent fan-out of tool calls within a round, and the
// Init/PlanRound/ExecuteRound/Done/Truncated/Failed state machine.
//
// Grounded on the teacher's internal/executor.Executor, which drives
// structurally the same loop (build messages, call model, parse tool calls,
// execute, append, repeat up to DefaultMaxTurns). The teacher executes tool
// calls for a round serially (`for _, tc := range toolCalls`); this is the
// one required structural change — spec §4.4 mandates concurrent fan-out
// within a round, canonicalized back into conversation order by
// tool_call_id, implemented here with golang.org/x/sync/errgroup (seen in
// janhq-server's llm-api server) instead of a plain WaitGroup. Every
// goroutine returns nil, so one tool call's failure never cancels its
// siblings; the group's context only carries cancellation of the turn's
// own context.
package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/agentoven/agentoven/toolcore/internal/access"
	"github.com/agentoven/agentoven/toolcore/internal/invoker"
	"github.com/agentoven/agentoven/toolcore/pkg/contracts"
	"github.com/agentoven/agentoven/toolcore/pkg/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxRounds is the round cap (spec §4.4, §6.3 MAX_ROUNDS).
const DefaultMaxRounds = 5

// TruncatedMessage is the deterministic message returned when the round cap
// is hit (spec §4.4 *Truncated*).
const TruncatedMessage = "I wasn't able to complete your request within the allowed number of planning rounds."

// FailedMessage is the deterministic message returned on reasoning-model failure.
const FailedMessage = "An error occurred while processing your request."

// Loop drives one turn's multi-round conversation.
type Loop struct {
	reasoning contracts.ReasoningClient
	invoker   *invoker.Invoker
	maxRounds int
}

// New builds a Planner Loop.
func New(reasoning contracts.ReasoningClient, inv *invoker.Invoker, maxRounds int) *Loop {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Loop{reasoning: reasoning, invoker: inv, maxRounds: maxRounds}
}

// Result is the outcome of one turn.
type Result struct {
	Response string
	Success  bool
	Metadata models.ExecutionMetadata
}

// Run executes the planner loop for one turn: Init, then PlanRound/ExecuteRound
// until Done, Truncated, or Failed.
func (l *Loop) Run(ctx context.Context, systemPrompt string, history []models.ChatMessage, userMessage string, surface access.Surface, accessCtx models.AccessContext) Result {
	start := time.Now()

	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: userMessage})

	var lineage []models.LineageRecord
	step := 0
	round := 0

	for {
		round++

		result, err := l.reasoning.Complete(ctx, messages, surface.Descriptors)
		if err != nil {
			return l.finish(FailedMessage, false, round-1, lineage, start)
		}

		if len(result.ToolCalls) == 0 {
			messages = append(messages, models.ChatMessage{Role: models.RoleAssistant, Content: result.Content})
			return l.finish(result.Content, true, round, lineage, start)
		}

		messages = append(messages, models.ChatMessage{Role: models.RoleAssistant, ToolCalls: result.ToolCalls})

		records, toolMessages := l.executeRound(ctx, result.ToolCalls, surface, accessCtx, &step)
		lineage = append(lineage, records...)
		messages = append(messages, toolMessages...)

		if round >= l.maxRounds {
			return l.finish(TruncatedMessage, false, round, lineage, start)
		}
	}
}

// executeRound dispatches every tool call in the round concurrently via
// invoker.Invoke, waits for all to complete, and returns both the lineage
// records and the tool-result messages in canonical order (by tool_call_id,
// i.e. the order the model emitted them in) regardless of completion order.
func (l *Loop) executeRound(ctx context.Context, calls []models.ToolCall, surface access.Surface, accessCtx models.AccessContext, step *int) ([]models.LineageRecord, []models.ChatMessage) {
	records := make([]models.LineageRecord, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	baseStep := *step
	for i, call := range calls {
		i, call := i, call
		stepNum := baseStep + i + 1
		g.Go(func() error {
			records[i] = l.invoker.Invoke(gctx, surface, accessCtx, call, stepNum)
			return nil
		})
	}
	_ = g.Wait() // invoker.Invoke never returns an error; every call produces a LineageRecord
	*step += len(calls)

	messages := make([]models.ChatMessage, len(calls))
	for i, call := range calls {
		messages[i] = models.ChatMessage{
			Role:       models.RoleTool,
			ToolCallID: call.ID,
			Content:    toolResultContent(records[i]),
		}
	}

	// Canonicalize by tool_call_id: calls and their results are already in
	// the model's emission order since `calls` itself came from the model,
	// and messages[i] corresponds to calls[i] by construction. An explicit
	// sort guards against any future reordering of `calls` upstream.
	sort.SliceStable(messages, func(i, j int) bool {
		return indexOfCallID(calls, messages[i].ToolCallID) < indexOfCallID(calls, messages[j].ToolCallID)
	})

	return records, messages
}

func indexOfCallID(calls []models.ToolCall, id string) int {
	for i, c := range calls {
		if c.ID == id {
			return i
		}
	}
	return len(calls)
}

func toolResultContent(rec models.LineageRecord) string {
	switch rec.Outcome {
	case models.OutcomeError:
		return fmt.Sprintf(`{"error": %q}`, rec.ResultSummary)
	default:
		return rec.ResultSummary
	}
}

func (l *Loop) finish(response string, success bool, rounds int, lineage []models.LineageRecord, start time.Time) Result {
	providers := providersUsed(lineage)
	return Result{
		Response: response,
		Success:  success,
		Metadata: models.ExecutionMetadata{
			Rounds:        rounds,
			ProvidersUsed: providers,
			DurationMs:    time.Since(start).Milliseconds(),
			Lineage:       lineage,
			Timestamp:     time.Now().UTC(),
		},
	}
}

// providersUsed derives the provider-id set from lineage rather than
// accumulating it as the turn progresses, matching original_source's
// orchestrator.py (`list(set(rec["mcp_id"] for rec in execution_records))`),
// which avoids a second source of truth. Per §9 Open Question (a), this is
// canonicalized as a set — returned here as a sorted slice for determinism.
func providersUsed(lineage []models.LineageRecord) []string {
	seen := map[string]struct{}{}
	for _, rec := range lineage {
		if rec.ProviderID == "" {
			continue
		}
		seen[rec.ProviderID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// NewTurnID mints a turn id the way the teacher mints MCP request ids.
func NewTurnID() string {
	return uuid.New().String()
}
