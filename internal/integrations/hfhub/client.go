// Package hfhub is an HTTP client for the hosted inference provider. It
// implements the adapter.Caller contract with the two calling conventions
// the provider exposes: flat text generation and chat-style completions.
package hfhub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"empath-relay/internal/adapter"
	"empath-relay/internal/domain"
)

const defaultBaseURL = "https://router.huggingface.co"

// textGenerationRequest is the wire shape of a flat generation call.
type textGenerationRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters *generationParameters `json:"parameters,omitempty"`
}

type generationParameters struct {
	MaxNewTokens int      `json:"max_new_tokens,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// chatRequest is the wire shape of a chat-completions call.
type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware
// context. Its text feeds the handler's guidance classification, so it keeps
// the upstream status code and body visible.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("hfhub: unexpected status %s from %s: %s", e.Status, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls the hosted inference provider over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	provider   string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client for the given API token and optional provider
// identifier. The token is required.
func NewClient(token, provider string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("hfhub: API token must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		token:      token,
		provider:   strings.TrimSpace(provider),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Supports reports which adapter methods this client can attempt. The
// legacy "conversational" method name is not part of this provider's
// surface.
func (c *Client) Supports(method string) bool {
	switch strings.ToLower(method) {
	case "text_generation", "chat", "chat_completion":
		return true
	}
	return false
}

// AcceptedFields reports the named fields each method accepts, letting the
// adapter trim its payload to exactly this subset.
func (c *Client) AcceptedFields(method string) []string {
	switch strings.ToLower(method) {
	case "text_generation":
		return []string{"model", "inputs", "max_new_tokens", "temperature"}
	case "chat", "chat_completion":
		return []string{"model", "messages", "max_new_tokens", "temperature"}
	}
	return nil
}

// Methods enumerates the client's method surface for the adapter's
// last-resort scan.
func (c *Client) Methods() []string {
	return []string{"text_generation", "chat", "chat_completion"}
}

// Invoke dispatches an adapter invocation to the matching HTTP call.
func (c *Client) Invoke(ctx context.Context, method string, args adapter.Args) (json.RawMessage, error) {
	switch strings.ToLower(method) {
	case "text_generation":
		return c.textGeneration(ctx, args)
	case "chat", "chat_completion":
		return c.chatCompletion(ctx, args)
	default:
		return nil, fmt.Errorf("hfhub: unsupported method %q", method)
	}
}

func (c *Client) textGeneration(ctx context.Context, args adapter.Args) (json.RawMessage, error) {
	model := stringField(args.Named, "model")
	if model == "" {
		return nil, errors.New("hfhub: text generation requires a model")
	}
	prompt := stringField(args.Named, "inputs")
	if prompt == "" {
		prompt = stringField(args.Named, "prompt")
	}
	if prompt == "" {
		return nil, fmt.Errorf("hfhub: text generation requires an inputs field: %w", adapter.ErrBadArgument)
	}

	body := textGenerationRequest{Inputs: prompt}
	if params := generationParams(args.Named); params != nil {
		body.Parameters = params
	}
	return c.postJSON(ctx, c.textGenerationURL(model), body)
}

func (c *Client) chatCompletion(ctx context.Context, args adapter.Args) (json.RawMessage, error) {
	req, err := buildChatRequest(args)
	if err != nil {
		return nil, err
	}
	return c.postJSON(ctx, c.chatURL(), req)
}

// buildChatRequest accepts the three argument shapes the adapter may send:
// a named messages payload, positional (model, messages), or the
// single-input payload with a separate system prompt.
func buildChatRequest(args adapter.Args) (chatRequest, error) {
	if len(args.Positional) > 0 {
		if len(args.Positional) < 2 {
			return chatRequest{}, fmt.Errorf("hfhub: chat requires (model, messages) positional arguments: %w", adapter.ErrBadArgument)
		}
		model, _ := args.Positional[0].(string)
		messages, ok := toMessages(args.Positional[1])
		if model == "" || !ok {
			return chatRequest{}, fmt.Errorf("hfhub: chat requires (model, messages) positional arguments: %w", adapter.ErrBadArgument)
		}
		return chatRequest{Model: model, Messages: messages}, nil
	}

	model := stringField(args.Named, "model")
	if model == "" {
		return chatRequest{}, errors.New("hfhub: chat requires a model")
	}
	req := chatRequest{Model: model, MaxTokens: intField(args.Named, "max_new_tokens")}
	if t, ok := floatField(args.Named, "temperature"); ok {
		req.Temperature = &t
	}

	if messages, ok := toMessages(args.Named["messages"]); ok {
		req.Messages = messages
		return req, nil
	}
	if input := stringField(args.Named, "inputs"); input != "" {
		req.Messages = []domain.ChatMessage{
			{Role: "system", Content: stringField(args.Named, "system_prompt")},
			{Role: "user", Content: input},
		}
		return req, nil
	}
	return chatRequest{}, fmt.Errorf("hfhub: chat requires messages or an inputs field: %w", adapter.ErrBadArgument)
}

func (c *Client) textGenerationURL(model string) string {
	return strings.TrimRight(c.baseURL, "/") + "/models/" + model
}

// chatURL routes through the provider-specific prefix when a provider
// identifier is configured.
func (c *Client) chatURL() string {
	base := strings.TrimRight(c.baseURL, "/")
	if c.provider != "" {
		return base + "/" + c.provider + "/v1/chat/completions"
	}
	return base + "/v1/chat/completions"
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("hfhub: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hfhub: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hfhub: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			Status:     res.Status,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("hfhub: read response body: %w", err)
	}
	return buf, nil
}

func toMessages(v any) ([]domain.ChatMessage, bool) {
	msgs, ok := v.([]domain.ChatMessage)
	if !ok || len(msgs) == 0 {
		return nil, false
	}
	return msgs, true
}

func stringField(named map[string]any, key string) string {
	s, _ := named[key].(string)
	return s
}

func intField(named map[string]any, key string) int {
	n, _ := named[key].(int)
	return n
}

func floatField(named map[string]any, key string) (float64, bool) {
	f, ok := named[key].(float64)
	return f, ok
}

func generationParams(named map[string]any) *generationParameters {
	params := &generationParameters{MaxNewTokens: intField(named, "max_new_tokens")}
	if t, ok := floatField(named, "temperature"); ok {
		params.Temperature = &t
	}
	if params.MaxNewTokens == 0 && params.Temperature == nil {
		return nil
	}
	return params
}
