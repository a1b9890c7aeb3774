package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const toolCallPath = "/api/viktor-spaces/tools/call"

type toolRequest struct {
	ProjectName   string         `json:"project_name"`
	ProjectSecret string         `json:"project_secret"`
	Role          string         `json:"role"`
	Arguments     map[string]any `json:"arguments"`
}

// ToolResult is the gateway's uniform outcome envelope. Transport failures
// with an HTTP status are folded into it rather than returned as errors,
// matching the send-email proxy's sibling contract: callers branch on
// Success, not on error taxonomy.
type ToolResult struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Gateway defines a public type used by authflow APIs.
//
// Gateway instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Gateway struct {
	config Config
	client *http.Client
}

// NewGateway validates cfg and returns a Gateway. A nil client gets a
// default with a 30-second timeout; tool invocations can legitimately run
// longer than email sends.
func NewGateway(cfg Config, client *http.Client) (*Gateway, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Gateway{config: cfg, client: client}, nil
}

// Call invokes the named tool role through the gateway. The returned error
// covers only request construction, transport, and decoding; an upstream
// non-2xx status arrives as ToolResult{Success: false, Error: "HTTP
// <status>: <body>"}.
func (g *Gateway) Call(ctx context.Context, role string, args map[string]any) (ToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}

	payload, err := json.Marshal(toolRequest{
		ProjectName:   g.config.ProjectName,
		ProjectSecret: g.config.ProjectSecret,
		Role:          role,
		Arguments:     args,
	})
	if err != nil {
		return ToolResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.APIURL+toolCallPath, bytes.NewReader(payload))
	if err != nil {
		return ToolResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return ToolResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return ToolResult{
			Success: false,
			Error:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}, nil
	}

	var result ToolResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ToolResult{}, fmt.Errorf("decode gateway response: %w", err)
	}
	return result, nil
}

// QuickAISearch runs an AI-backed web search through the gateway.
func (g *Gateway) QuickAISearch(ctx context.Context, query string) (ToolResult, error) {
	return g.Call(ctx, "quick_ai_search", map[string]any{
		"search_question": query,
	})
}
