package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/agentoven/agentoven/toolcore/pkg/contracts"
	"github.com/agentoven/agentoven/toolcore/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	schemas []models.ToolSchema
	err     error
}

func (f *fakeClient) ListTools(ctx context.Context) ([]models.ToolSchema, error) {
	return f.schemas, f.err
}

func (f *fakeClient) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*contracts.ToolCallResponse, error) {
	return nil, errors.New("not implemented")
}

func TestLoadAll_AggregatesHealthyProviders(t *testing.T) {
	clients := map[string]contracts.ToolServerClient{
		"a": &fakeClient{schemas: []models.ToolSchema{{Name: "search", ProviderID: "a"}}},
		"b": &fakeClient{err: errors.New("timeout")},
	}
	r := New(clients, map[string]string{"a": "http://a", "b": "http://b"})
	r.LoadAll(context.Background())

	surface := r.Surface()
	require.Len(t, surface, 1)
	assert.Equal(t, "search", surface[0].Name)

	providers := r.Providers()
	require.Len(t, providers, 2)
	byID := map[string]models.ToolProvider{}
	for _, p := range providers {
		byID[p.ID] = p
	}
	assert.True(t, byID["a"].Healthy)
	assert.False(t, byID["b"].Healthy)
	assert.Equal(t, "http://a", byID["a"].BaseURL)
}

func TestLoadAll_CollisionLastWriterWinsInSortedOrder(t *testing.T) {
	clients := map[string]contracts.ToolServerClient{
		"provider-a": &fakeClient{schemas: []models.ToolSchema{{Name: "search", ProviderID: "provider-a"}}},
		"provider-b": &fakeClient{schemas: []models.ToolSchema{{Name: "search", ProviderID: "provider-b"}}},
	}
	r := New(clients, nil)
	r.LoadAll(context.Background())

	schema, ok := r.Lookup("search")
	require.True(t, ok)
	assert.Equal(t, "provider-b", schema.ProviderID)
}

func TestRefresh_KeepsPreviousCatalogOnTotalFailure(t *testing.T) {
	clients := map[string]contracts.ToolServerClient{
		"a": &fakeClient{schemas: []models.ToolSchema{{Name: "search", ProviderID: "a"}}},
	}
	r := New(clients, nil)
	r.LoadAll(context.Background())
	require.Len(t, r.Surface(), 1)

	r.clients["a"] = &fakeClient{err: errors.New("down")}
	r.Refresh(context.Background())

	assert.Len(t, r.Surface(), 1, "catalog should be retained when every provider fails")
}

func TestRefresh_SwapsInWhenAtLeastOneProviderHealthy(t *testing.T) {
	clients := map[string]contracts.ToolServerClient{
		"a": &fakeClient{err: errors.New("down")},
		"b": &fakeClient{schemas: []models.ToolSchema{{Name: "ping", ProviderID: "b"}}},
	}
	r := New(clients, nil)
	r.LoadAll(context.Background())

	r.Refresh(context.Background())

	surface := r.Surface()
	require.Len(t, surface, 1)
	assert.Equal(t, "ping", surface[0].Name)
}
