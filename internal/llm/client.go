package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Wire parameters shared by every completion.
const (
	Temperature = 0.7
	MaxTokens   = 4000
)

// Request is a single system+user exchange.
type Request struct {
	System string
	User   string
	// JSONMode asks the provider for a JSON object response.
	JSONMode bool
}

// Client sends chat-completion requests to an OpenAI-compatible endpoint.
// It never retries: one Complete call is exactly one outbound request.
type Client struct {
	transport http.RoundTripper
	timeout   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTransport overrides the HTTP transport (tests, proxies).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithTimeout bounds each request. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a new LLM client.
func New(opts ...Option) *Client {
	c := &Client{transport: http.DefaultTransport}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete sends req to cfg's endpoint and returns the content of the first
// choice exactly as the model produced it. Non-2xx answers and blank content
// come back as *Failure; any other error is returned as-is for the caller to
// classify.
func (c *Client) Complete(ctx context.Context, cfg Config, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	config.HTTPClient = &http.Client{
		Transport: &headerTransport{base: c.transport, headers: cfg.Headers},
	}
	api := openai.NewClientWithConfig(config)

	chatReq := openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		if status := statusCode(err); status > 0 {
			slog.Warn("LLM request rejected", "status", status, "llm", cfg, "elapsed", time.Since(start))
			return "", &Failure{
				Kind: KindTransportFailure,
				Message: fmt.Sprintf("LLM API request failed with status %d. "+
					"Please check your API configuration and try again.", status),
				StatusCode: status,
			}
		}
		if errors.Is(err, openai.ErrReasoningModelMaxTokensDeprecated) ||
			errors.Is(err, openai.ErrReasoningModelLimitationsOther) {
			// go-openai refuses max_tokens and temperature for o1/o3/o4/gpt-5 models.
			slog.Warn("LLM model does not accept max_tokens/temperature, choose a chat model",
				"error", err, "llm", cfg)
		} else {
			slog.Warn("LLM request failed", "error", err, "llm", cfg, "elapsed", time.Since(start))
		}
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	slog.Debug("LLM request completed", "llm", cfg, "elapsed", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(content) == "" {
		raw, _ := json.Marshal(resp)
		return "", &Failure{
			Kind:        KindEmptyResponse,
			Message:     "No content received from LLM API",
			RawResponse: string(raw),
		}
	}
	return content, nil
}

// statusCode extracts the HTTP status from go-openai errors, or 0.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// headerTransport stamps the resolved headers onto every outbound request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	for k, v := range t.headers {
		r.Header.Set(k, v)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
