package toolclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTools_ParsesSchemasAndSkipsIncomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tools":[
			{"name":"search","description":"finds stuff","parameters":{"type":"object"},"allowed_roles":["analyst"]},
			{"name":"","description":"missing name","parameters":{"type":"object"}},
			{"name":"broken","description":"missing parameters"}
		]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("p1", srv.URL, srv.Client())
	schemas, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "search", schemas[0].Name)
	assert.Equal(t, "p1", schemas[0].ProviderID)
	assert.Equal(t, []string{"analyst"}, schemas[0].AllowedRoles)
}

func TestCallTool_SuccessResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(`{"result":{"hits":5}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("p1", srv.URL, srv.Client())
	resp, err := c.CallTool(context.Background(), "search", map[string]interface{}{"q": "go"})
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.NotNil(t, resp.Result)
}

func TestCallTool_StructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"bad args","kind":"ValidationError"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("p1", srv.URL, srv.Client())
	resp, err := c.CallTool(context.Background(), "search", map[string]interface{}{})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ValidationError", resp.Error.Kind)
}

func TestCallTool_ServerErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient("p1", srv.URL, srv.Client())
	_, err := c.CallTool(context.Background(), "search", map[string]interface{}{})
	assert.Error(t, err)
}
