// Package registry implements the Tool Registry (spec §4.1): the in-memory
// catalog of tool providers and the schemas they expose, rebuilt at startup
// and refreshable on demand. Grounded on the teacher's model catalog
// (internal/catalog), which swaps an in-memory catalog atomically on
// background refresh; adapted here to probe remote Tool Servers instead of
// a single hardcoded pricing feed.
package registry

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentoven/agentoven/toolcore/pkg/contracts"
	"github.com/agentoven/agentoven/toolcore/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultProbeTimeout is the per-provider discovery timeout (spec §4.1).
const DefaultProbeTimeout = 5 * time.Second

// catalog is the immutable snapshot swapped in atomically by refresh.
type catalog struct {
	providers map[string]models.ToolProvider  // id -> provider
	schemas   map[string]models.ToolSchema    // name -> schema (last writer wins, I1)
	toolToProvider map[string]string          // name -> provider id
}

// Registry holds the current catalog and the clients used to probe providers.
type Registry struct {
	clients      map[string]contracts.ToolServerClient
	baseURLs     map[string]string
	probeTimeout time.Duration

	current atomic.Pointer[catalog]
	mu      sync.Mutex // serializes refresh() swaps
}

// New builds a Registry from a set of provider clients, keyed by provider id.
func New(clients map[string]contracts.ToolServerClient, baseURLs map[string]string) *Registry {
	r := &Registry{
		clients:      clients,
		baseURLs:     baseURLs,
		probeTimeout: DefaultProbeTimeout,
	}
	r.current.Store(&catalog{
		providers:      map[string]models.ToolProvider{},
		schemas:        map[string]models.ToolSchema{},
		toolToProvider: map[string]string{},
	})
	return r
}

// LoadAll probes every configured provider in parallel with a per-provider
// timeout. Providers that fail to respond are recorded as unhealthy and
// omitted from the surface; LoadAll itself never fails.
func (r *Registry) LoadAll(ctx context.Context) {
	next := r.probeAll(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.Store(next)
}

// Refresh rebuilds the catalog off to the side and swaps it in only if at
// least one provider responded; on total failure the previous catalog is
// retained.
func (r *Registry) Refresh(ctx context.Context) {
	next := r.probeAll(ctx)

	anyHealthy := false
	for _, p := range next.providers {
		if p.Healthy {
			anyHealthy = true
			break
		}
	}
	if !anyHealthy && len(r.clients) > 0 {
		log.Warn().Msg("registry refresh: no provider responded, keeping previous catalog")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.Store(next)
}

func (r *Registry) probeAll(ctx context.Context) *catalog {
	next := &catalog{
		providers:      make(map[string]models.ToolProvider, len(r.clients)),
		schemas:        make(map[string]models.ToolSchema),
		toolToProvider: make(map[string]string),
	}

	type probeResult struct {
		id      string
		schemas []models.ToolSchema
		err     error
	}

	results := make(chan probeResult, len(r.clients))
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic probe order; I1 "later-loaded providers lose"

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string, client contracts.ToolServerClient) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
			defer cancel()
			schemas, err := client.ListTools(probeCtx)
			results <- probeResult{id: id, schemas: schemas, err: err}
		}(id, r.clients[id])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make(map[string]probeResult, len(r.clients))
	for res := range results {
		collected[res.id] = res
	}

	for _, id := range ids {
		res := collected[id]
		healthy := res.err == nil
		if !healthy {
			log.Warn().Str("provider_id", id).Err(res.err).Msg("tool provider discovery failed")
		}
		next.providers[id] = models.ToolProvider{ID: id, BaseURL: r.baseURLs[id], Healthy: healthy}
		if !healthy {
			continue
		}
		for _, schema := range res.schemas {
			if _, exists := next.schemas[schema.Name]; exists {
				log.Warn().Str("tool_name", schema.Name).Str("provider_id", id).
					Msg("tool name collision across providers; later-loaded provider wins")
			}
			next.schemas[schema.Name] = schema
			next.toolToProvider[schema.Name] = id
		}
	}

	return next
}

// Surface returns an immutable snapshot of all current tool schemas.
func (r *Registry) Surface() []models.ToolSchema {
	c := r.current.Load()
	out := make([]models.ToolSchema, 0, len(c.schemas))
	for _, s := range c.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the schema for name and whether it exists in the current surface.
func (r *Registry) Lookup(name string) (models.ToolSchema, bool) {
	c := r.current.Load()
	s, ok := c.schemas[name]
	return s, ok
}

// Providers returns the known providers and their health.
func (r *Registry) Providers() []models.ToolProvider {
	c := r.current.Load()
	out := make([]models.ToolProvider, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Client returns the ToolServerClient for a provider id.
func (r *Registry) Client(providerID string) (contracts.ToolServerClient, bool) {
	c, ok := r.clients[providerID]
	return c, ok
}
