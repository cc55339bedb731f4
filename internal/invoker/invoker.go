// Package invoker implements the Tool Invoker (spec §4.3): executing exactly
// one remote tool call against one provider, with argument validation, cache
// lookup, timeout/retry dispatch, and lineage recording.
//
// Retry is grounded on janhq-server's generic exponential-backoff retry
// helper (internal/infrastructure/search/retry.go), adapted to the real
// github.com/cenkalti/backoff/v4 package and restricted to transport-level
// failures only, per spec §4.3's distinction between TransportError (retried)
// and a structured tool-level error payload (not retried). Single-flight
// coalescing is grounded on haasonsaas-nexus's hand-rolled generic
// singleflight.Group, but wired to the real golang.org/x/sync/singleflight
// package instead, since it is already in the dependency graph and does
// exactly what spec §4.3/§5 ask.
package invoker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agentoven/agentoven/toolcore/internal/access"
	"github.com/agentoven/agentoven/toolcore/pkg/contracts"
	"github.com/agentoven/agentoven/toolcore/pkg/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout is the per-tool-call budget (spec §4.3, §6.3 TOOL_CALL_TIMEOUT_MS).
const DefaultTimeout = 30 * time.Second

// DefaultCacheTTL is the default cache entry lifetime (spec §3 CacheEntry, §6.3 CACHE_TTL_SEC).
const DefaultCacheTTL = 300 * time.Second

const (
	retryBase = 500 * time.Millisecond
	retryCap  = 4 * time.Second
	maxRetries = 2
)

// ErrUnknownTool is returned when the requested tool is absent from the
// filtered surface (spec §7 UnknownTool).
var ErrUnknownTool = errors.New("unknown tool")

// ErrInvalidArguments is returned when arguments fail schema validation
// (spec §7 InvalidArguments).
var ErrInvalidArguments = errors.New("invalid arguments")

// CacheStore is the narrow cache substrate the Tool Invoker depends on;
// implemented by the Session Store (spec §4.5).
type CacheStore interface {
	CacheGet(ctx context.Context, key string) (interface{}, bool)
	CachePut(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// ClientResolver returns the ToolServerClient for a provider id.
type ClientResolver interface {
	Client(providerID string) (contracts.ToolServerClient, bool)
}

// Invoker executes single tool calls.
type Invoker struct {
	clients  ClientResolver
	cache    CacheStore
	cacheTTL time.Duration
	timeout  time.Duration
	sf       singleflight.Group

	compiledMu sync.RWMutex
	compiled   map[string]*jsonschema.Schema // keyed by tool name
}

// New builds a Tool Invoker.
func New(clients ClientResolver, cache CacheStore, timeout, cacheTTL time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Invoker{
		clients:  clients,
		cache:    cache,
		cacheTTL: cacheTTL,
		timeout:  timeout,
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Invoke executes one tool call and always returns a LineageRecord (spec
// §4.3 "every completed call... produces a LineageRecord"), including the
// UnknownTool and InvalidArguments cases, which fail without dispatching.
func (inv *Invoker) Invoke(ctx context.Context, surface access.Surface, accessCtx models.AccessContext, call models.ToolCall, step int) models.LineageRecord {
	start := time.Now()
	rec := models.LineageRecord{
		Step:      step,
		ToolName:  call.Name,
		Arguments: call.Arguments,
		Timestamp: start,
	}

	schema, ok := surface.Schemas[call.Name]
	if !ok {
		rec.Outcome = models.OutcomeError
		rec.ErrorKind = "UnknownTool"
		rec.ResultSummary = fmt.Sprintf("tool %q is not in the caller's surface", call.Name)
		rec.DurationMs = time.Since(start).Milliseconds()
		return rec
	}
	rec.ProviderID = schema.ProviderID

	if err := inv.validate(schema, call.Arguments); err != nil {
		rec.Outcome = models.OutcomeError
		rec.ErrorKind = "InvalidArguments"
		rec.ResultSummary = err.Error()
		rec.DurationMs = time.Since(start).Milliseconds()
		return rec
	}

	args := withAccessContext(call.Arguments, accessCtx)
	key := cacheKey(schema.ProviderID, schema.Name, args, accessCtx)

	if cached, hit := inv.cache.CacheGet(ctx, key); hit {
		rec.Outcome = models.OutcomeCached
		rec.Result = cached
		rec.ResultSummary = summarize(cached)
		rec.DurationMs = time.Since(start).Milliseconds()
		return rec
	}

	client, ok := inv.clients.Client(schema.ProviderID)
	if !ok {
		rec.Outcome = models.OutcomeError
		rec.ErrorKind = "TransportError"
		rec.ResultSummary = fmt.Sprintf("no client registered for provider %q", schema.ProviderID)
		rec.DurationMs = time.Since(start).Milliseconds()
		return rec
	}

	resp, err := inv.dispatch(ctx, key, client, schema.Name, args)
	rec.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		rec.Outcome = models.OutcomeError
		rec.ErrorKind = "TransportError"
		rec.ResultSummary = err.Error()
		return rec
	}

	if resp.Error != nil {
		rec.Outcome = models.OutcomeError
		rec.ErrorKind = "ToolError"
		rec.Result = resp.Error
		rec.ResultSummary = resp.Error.Message
		return rec
	}

	inv.cache.CachePut(ctx, key, resp.Result, inv.cacheTTL)
	rec.Outcome = models.OutcomeSuccess
	rec.Result = resp.Result
	rec.ResultSummary = summarize(resp.Result)
	return rec
}

// dispatch performs the single-flight-coalesced, retried remote call. Each
// attempt gets its own per-call timeout, so a timed-out attempt is retried
// like any other transport failure. Only transport-level errors are retried;
// a structured tool-level error response is returned immediately as a
// successful (non-retried) result of the RPC.
func (inv *Invoker) dispatch(ctx context.Context, key string, client contracts.ToolServerClient, name string, args map[string]interface{}) (*contracts.ToolCallResponse, error) {
	v, err, _ := inv.sf.Do(key, func() (interface{}, error) {
		var resp *contracts.ToolCallResponse
		operation := func() error {
			callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
			defer cancel()
			r, callErr := client.CallTool(callCtx, name, args)
			if callErr != nil {
				log.Warn().Str("tool_name", name).Err(callErr).Msg("tool dispatch transport error, retrying")
				return callErr
			}
			resp = r
			return nil
		}

		b := backoff.NewExponentialBackOff()
		b.InitialInterval = retryBase
		b.MaxInterval = retryCap
		b.MaxElapsedTime = 0 // bounded by WithMaxRetries, not elapsed time

		retryable := backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
		if err := backoff.Retry(operation, retryable); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*contracts.ToolCallResponse), nil
}

// validate compiles (and caches) the tool's parameter schema and validates
// arguments against it.
func (inv *Invoker) validate(schema models.ToolSchema, arguments map[string]interface{}) error {
	compiled, err := inv.compiledSchema(schema)
	if err != nil {
		return fmt.Errorf("%w: %s: schema compile failed: %v", ErrInvalidArguments, schema.Name, err)
	}
	if compiled == nil {
		return nil // tool declared no parameter schema; anything is accepted
	}
	if err := compiled.Validate(arguments); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArguments, schema.Name, err)
	}
	return nil
}

func (inv *Invoker) compiledSchema(schema models.ToolSchema) (*jsonschema.Schema, error) {
	inv.compiledMu.RLock()
	s, ok := inv.compiled[schema.Name]
	inv.compiledMu.RUnlock()
	if ok {
		return s, nil
	}

	if len(schema.Parameters) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(schema.Parameters)
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	url := "mem://" + schema.Name
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, err
	}

	inv.compiledMu.Lock()
	inv.compiled[schema.Name] = compiled
	inv.compiledMu.Unlock()
	return compiled, nil
}

// withAccessContext injects access_context into the arguments object per
// spec §6.1; a call whose arguments already omit it is augmented (Testable
// Property 12).
func withAccessContext(arguments map[string]interface{}, ctx models.AccessContext) map[string]interface{} {
	out := make(map[string]interface{}, len(arguments)+1)
	for k, v := range arguments {
		out[k] = v
	}
	accessCtx := map[string]interface{}{
		"user_id": ctx.UserID,
		"roles":   ctx.Roles,
	}
	for k, v := range ctx.Scope {
		accessCtx[k] = v
	}
	out["access_context"] = accessCtx
	return out
}

// cacheKey computes the (provider_id, tool_name, canonical-argument-hash,
// access-scope-hash) key per invariant I5.
func cacheKey(providerID, toolName string, arguments map[string]interface{}, ctx models.AccessContext) string {
	argHash := canonicalHash(arguments)
	scopeHash := canonicalHash(map[string]interface{}{
		"user_id": ctx.UserID,
		"roles":   sortedCopy(ctx.Roles),
		"scope":   ctx.Scope,
	})
	return fmt.Sprintf("%s:%s:%s:%s", providerID, toolName, argHash, scopeHash)
}

func canonicalHash(v interface{}) string {
	raw, err := canonicalJSON(v)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", v))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// canonicalJSON marshals v directly; Go's encoding/json already sorts
// map[string] keys alphabetically, so a direct Marshal is canonical.
func canonicalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

func summarize(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	if len(raw) > 200 {
		return string(raw[:200]) + "…"
	}
	return string(raw)
}
