// Package toolclient implements contracts.ToolServerClient against the
// Tool-Server Protocol (spec §6.1): a flat JSON-body RPC over HTTP, distinct
// from the teacher's full MCP JSON-RPC 2.0 envelope.
package toolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agentoven/agentoven/toolcore/pkg/contracts"
	"github.com/agentoven/agentoven/toolcore/pkg/models"
)

// HTTPClient dispatches list-tools and call-tool RPCs to one provider's base URL.
type HTTPClient struct {
	providerID string
	baseURL    string
	client     *http.Client
}

// NewHTTPClient builds a client for the given provider.
func NewHTTPClient(providerID, baseURL string, client *http.Client) *HTTPClient {
	return &HTTPClient{providerID: providerID, baseURL: baseURL, client: client}
}

type listToolsRequest struct {
	Method string `json:"method"`
}

type listToolsResponse struct {
	Tools []struct {
		Name         string                 `json:"name"`
		Description  string                 `json:"description"`
		Parameters   map[string]interface{} `json:"parameters"`
		AllowedRoles []string               `json:"allowed_roles,omitempty"`
	} `json:"tools"`
}

// ListTools issues {method: "tools/list"} and returns the declared schemas.
func (c *HTTPClient) ListTools(ctx context.Context) ([]models.ToolSchema, error) {
	body, err := json.Marshal(listToolsRequest{Method: "tools/list"})
	if err != nil {
		return nil, fmt.Errorf("marshal list-tools request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("provider %s: server error %d", c.providerID, resp.StatusCode)
	}

	var parsed listToolsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode list-tools response: %w", err)
	}

	schemas := make([]models.ToolSchema, 0, len(parsed.Tools))
	for _, t := range parsed.Tools {
		if t.Name == "" || t.Parameters == nil {
			continue
		}
		schemas = append(schemas, models.ToolSchema{
			Name:         t.Name,
			ProviderID:   c.providerID,
			Description:  t.Description,
			Parameters:   t.Parameters,
			AllowedRoles: t.AllowedRoles,
		})
	}
	return schemas, nil
}

type callToolRequest struct {
	Method string     `json:"method"`
	Params callParams `json:"params"`
}

type callParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type callToolResponse struct {
	Result interface{} `json:"result"`
	Error  *struct {
		Message string `json:"message"`
		Kind    string `json:"kind,omitempty"`
	} `json:"error,omitempty"`
}

// CallTool issues {method: "tools/call", params: {name, arguments}}. Transport
// failures (connection, timeout, 5xx) are returned as a Go error so the Tool
// Invoker's retry policy can distinguish them from a structured tool-level
// error, which is returned in the response's Error field instead.
func (c *HTTPClient) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*contracts.ToolCallResponse, error) {
	body, err := json.Marshal(callToolRequest{
		Method: "tools/call",
		Params: callParams{Name: name, Arguments: arguments},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal call-tool request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("provider %s: server error %d", c.providerID, resp.StatusCode)
	}

	var parsed callToolResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode call-tool response: %w", err)
	}

	out := &contracts.ToolCallResponse{Result: parsed.Result}
	if parsed.Error != nil {
		out.Error = &contracts.ToolCallError{Message: parsed.Error.Message, Kind: parsed.Error.Kind}
	}
	return out, nil
}

func (c *HTTPClient) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", c.providerID, err)
	}
	return resp, nil
}
