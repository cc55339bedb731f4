package invoker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentoven/agentoven/toolcore/internal/access"
	"github.com/agentoven/agentoven/toolcore/pkg/contracts"
	"github.com/agentoven/agentoven/toolcore/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls      int32
	result     interface{}
	toolErr    *contracts.ToolCallError
	transport  error
	failNTimes int32
	blockFor   time.Duration
}

func (f *fakeClient) ListTools(ctx context.Context) ([]models.ToolSchema, error) { return nil, nil }

func (f *fakeClient) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*contracts.ToolCallResponse, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.blockFor > 0 {
		time.Sleep(f.blockFor)
	}
	if f.transport != nil && n <= f.failNTimes {
		return nil, f.transport
	}
	if f.toolErr != nil {
		return &contracts.ToolCallResponse{Error: f.toolErr}, nil
	}
	return &contracts.ToolCallResponse{Result: f.result}, nil
}

type fakeResolver struct{ clients map[string]contracts.ToolServerClient }

func (r fakeResolver) Client(id string) (contracts.ToolServerClient, bool) {
	c, ok := r.clients[id]
	return c, ok
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string]interface{}
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string]interface{}{}} }

func (c *fakeCache) CacheGet(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	return v, ok
}

func (c *fakeCache) CachePut(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}

func testSurface(schema models.ToolSchema) access.Surface {
	return access.Surface{
		Schemas:        map[string]models.ToolSchema{schema.Name: schema},
		ToolToProvider: map[string]string{schema.Name: schema.ProviderID},
	}
}

func TestInvoke_UnknownTool(t *testing.T) {
	inv := New(fakeResolver{}, newFakeCache(), time.Second, time.Minute)
	rec := inv.Invoke(context.Background(), access.Surface{Schemas: map[string]models.ToolSchema{}}, models.AccessContext{}, models.ToolCall{Name: "ghost"}, 1)
	assert.Equal(t, models.OutcomeError, rec.Outcome)
	assert.Equal(t, "UnknownTool", rec.ErrorKind)
}

func TestInvoke_InvalidArguments(t *testing.T) {
	schema := models.ToolSchema{
		Name:       "search",
		ProviderID: "p1",
		Parameters: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"query"},
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string"},
			},
		},
	}
	inv := New(fakeResolver{}, newFakeCache(), time.Second, time.Minute)
	rec := inv.Invoke(context.Background(), testSurface(schema), models.AccessContext{}, models.ToolCall{Name: "search", Arguments: map[string]interface{}{}}, 1)
	assert.Equal(t, models.OutcomeError, rec.Outcome)
	assert.Equal(t, "InvalidArguments", rec.ErrorKind)
}

func TestInvoke_SuccessAndCacheHit(t *testing.T) {
	schema := models.ToolSchema{Name: "search", ProviderID: "p1"}
	client := &fakeClient{result: map[string]interface{}{"hits": 3}}
	cache := newFakeCache()
	inv := New(fakeResolver{clients: map[string]contracts.ToolServerClient{"p1": client}}, cache, time.Second, time.Minute)

	call := models.ToolCall{Name: "search", Arguments: map[string]interface{}{"q": "go"}}
	accessCtx := models.AccessContext{UserID: "u1", Roles: []string{"analyst"}}

	rec1 := inv.Invoke(context.Background(), testSurface(schema), accessCtx, call, 1)
	require.Equal(t, models.OutcomeSuccess, rec1.Outcome)
	assert.EqualValues(t, 1, client.calls)

	rec2 := inv.Invoke(context.Background(), testSurface(schema), accessCtx, call, 2)
	assert.Equal(t, models.OutcomeCached, rec2.Outcome)
	assert.EqualValues(t, 1, client.calls, "cache hit must not dispatch again")
}

func TestInvoke_DifferentScopesNeverShareCache(t *testing.T) {
	schema := models.ToolSchema{Name: "search", ProviderID: "p1"}
	client := &fakeClient{result: "ok"}
	cache := newFakeCache()
	inv := New(fakeResolver{clients: map[string]contracts.ToolServerClient{"p1": client}}, cache, time.Second, time.Minute)
	call := models.ToolCall{Name: "search", Arguments: map[string]interface{}{"q": "go"}}

	inv.Invoke(context.Background(), testSurface(schema), models.AccessContext{UserID: "u1", Roles: []string{"analyst"}}, call, 1)
	inv.Invoke(context.Background(), testSurface(schema), models.AccessContext{UserID: "u2", Roles: []string{"analyst"}}, call, 2)

	assert.EqualValues(t, 2, client.calls, "distinct access scopes must not share a cache entry")
}

func TestInvoke_ToolErrorIsNotRetried(t *testing.T) {
	schema := models.ToolSchema{Name: "search", ProviderID: "p1"}
	client := &fakeClient{toolErr: &contracts.ToolCallError{Message: "bad input", Kind: "ValidationError"}}
	inv := New(fakeResolver{clients: map[string]contracts.ToolServerClient{"p1": client}}, newFakeCache(), time.Second, time.Minute)

	rec := inv.Invoke(context.Background(), testSurface(schema), models.AccessContext{}, models.ToolCall{Name: "search"}, 1)

	assert.Equal(t, models.OutcomeError, rec.Outcome)
	assert.Equal(t, "ToolError", rec.ErrorKind)
	assert.EqualValues(t, 1, client.calls)
}

func TestInvoke_TransportErrorRetriesThenSucceeds(t *testing.T) {
	schema := models.ToolSchema{Name: "search", ProviderID: "p1"}
	client := &fakeClient{result: "ok", transport: errors.New("connection refused"), failNTimes: 2}
	inv := New(fakeResolver{clients: map[string]contracts.ToolServerClient{"p1": client}}, newFakeCache(), time.Second, time.Minute)

	rec := inv.Invoke(context.Background(), testSurface(schema), models.AccessContext{}, models.ToolCall{Name: "search"}, 1)

	assert.Equal(t, models.OutcomeSuccess, rec.Outcome)
	assert.EqualValues(t, 3, client.calls, "2 transport failures + 1 success within the retry budget")
}

func TestInvoke_TransportErrorExhaustsRetries(t *testing.T) {
	schema := models.ToolSchema{Name: "search", ProviderID: "p1"}
	client := &fakeClient{transport: errors.New("connection refused"), failNTimes: 100}
	inv := New(fakeResolver{clients: map[string]contracts.ToolServerClient{"p1": client}}, newFakeCache(), time.Second, time.Minute)

	rec := inv.Invoke(context.Background(), testSurface(schema), models.AccessContext{}, models.ToolCall{Name: "search"}, 1)

	assert.Equal(t, models.OutcomeError, rec.Outcome)
	assert.Equal(t, "TransportError", rec.ErrorKind)
	assert.EqualValues(t, maxRetries+1, client.calls)
}

// TestInvoke_ConcurrentIdenticalCallsCoalesceIntoOneDispatch verifies
// Testable Property 6: concurrent identical tool calls on a cold cache key
// produce exactly one outbound dispatch, with every caller observing the
// same result.
func TestInvoke_ConcurrentIdenticalCallsCoalesceIntoOneDispatch(t *testing.T) {
	schema := models.ToolSchema{Name: "search", ProviderID: "p1"}
	client := &fakeClient{result: map[string]interface{}{"hits": 7}, blockFor: 20 * time.Millisecond}
	inv := New(fakeResolver{clients: map[string]contracts.ToolServerClient{"p1": client}}, newFakeCache(), time.Second, time.Minute)

	call := models.ToolCall{Name: "search", Arguments: map[string]interface{}{"q": "go"}}
	accessCtx := models.AccessContext{UserID: "u1", Roles: []string{"analyst"}}
	surface := testSurface(schema)

	const concurrency = 10
	var wg sync.WaitGroup
	records := make([]models.LineageRecord, concurrency)
	for i := 0; i < concurrency; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			records[i] = inv.Invoke(context.Background(), surface, accessCtx, call, i+1)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, client.calls, "identical concurrent calls on a cold key must coalesce into one dispatch")
	for _, rec := range records {
		assert.Equal(t, models.OutcomeSuccess, rec.Outcome)
	}
}
