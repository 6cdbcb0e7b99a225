// Package openai implements the provider contract against any
// OpenAI-compatible chat completion API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Sdiabate1337/djula-com-sub000/internal/provider"
)

// maxResponseSize is the maximum response body size (10 MB).
// Protects against OOM from malformed or huge responses.
const maxResponseSize = 10 * 1024 * 1024

// Client is an OpenAI-compatible completion client.
type Client struct {
	config Config
	http   *http.Client
}

// Interface guard.
var _ provider.Provider = (*Client)(nil)

// New creates a Client from the given config. The config should already
// have been validated.
func New(cfg Config) *Client {
	cfg.Defaults()
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.parsedTimeout()},
	}
}

// ModelName implements provider.Provider.
func (c *Client) ModelName() string { return c.config.Model }

// buildChatRequest creates an API chat request from a provider
// CompletionRequest, merging request-level overrides with config defaults.
func (c *Client) buildChatRequest(req provider.CompletionRequest) chatRequest {
	cr := chatRequest{
		Model:    c.config.Model,
		Messages: toMessages(req.Messages),
	}

	switch {
	case req.MaxTokens > 0:
		cr.MaxTokens = req.MaxTokens
	case c.config.MaxTokens > 0:
		cr.MaxTokens = c.config.MaxTokens
	}

	switch {
	case req.Temperature != nil:
		cr.Temperature = req.Temperature
	case c.config.Temperature != nil:
		cr.Temperature = c.config.Temperature
	}

	if len(req.Stop) > 0 {
		cr.Stop = req.Stop
	}

	if req.JSONMode {
		cr.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	return cr
}

// doPost sends a POST request and returns the response body and status code.
// The response body is limited to maxResponseSize bytes.
func (c *Client) doPost(ctx context.Context, path string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("openai: read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// Complete sends a completion request and returns the full response.
func (c *Client) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	cr := c.buildChatRequest(req)

	body, statusCode, err := c.doPost(ctx, "/chat/completions", cr)
	if err != nil {
		return provider.CompletionResponse{}, err
	}

	if httpErr := mapHTTPError(statusCode, body); httpErr != nil {
		return provider.CompletionResponse{}, httpErr
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("openai: unmarshal response: %w", err)
	}

	return fromResponse(&resp), nil
}
