package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) Config {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg, err := Resolve(StaticSource{KeyAPIKey: "test-key", KeyBaseURL: server.URL + "/v1"})
	require.NoError(t, err)
	return cfg
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		src       Source
		wantErr   bool
		wantURL   string
		wantModel string
	}{
		{"nil source", nil, true, "", ""},
		{"missing key", StaticSource{}, true, "", ""},
		{"whitespace key", StaticSource{KeyAPIKey: "   \t"}, true, "", ""},
		{"defaults", StaticSource{KeyAPIKey: "sk-1"}, false, DefaultBaseURL, DefaultModel},
		{"overrides", StaticSource{
			KeyAPIKey:  " sk-1 ",
			KeyBaseURL: "http://localhost:11434/v1/",
			KeyModel:   "llama3.2",
		}, false, "http://localhost:11434/v1", "llama3.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Resolve(tt.src)
			if tt.wantErr {
				var f *Failure
				require.True(t, errors.As(err, &f), "expected *Failure, got %v", err)
				assert.Equal(t, KindConfigInvalid, f.Kind)
				assert.Contains(t, f.Message, "VIDYA_LLM_KEY")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, cfg.BaseURL)
			assert.Equal(t, tt.wantModel, cfg.Model)
			assert.Equal(t, "sk-1", cfg.APIKey)
			assert.Equal(t, "Bearer sk-1", cfg.Headers["Authorization"])
			assert.Equal(t, "application/json", cfg.Headers["Content-Type"])
		})
	}
}

func TestConfigLogValueRedactsKey(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cfg, err := Resolve(StaticSource{KeyAPIKey: "sk-secret-123"})
	require.NoError(t, err)

	logger.Info("resolved", "llm", cfg)
	assert.NotContains(t, buf.String(), "sk-secret-123")
	assert.Contains(t, buf.String(), DefaultModel)
}

func TestComplete_RequestShape(t *testing.T) {
	var got map[string]any
	var auth string
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("  hello  "))
	})

	out, err := New().Complete(context.Background(), cfg, Request{System: "sys", User: "usr", JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, "  hello  ", out, "content is returned untrimmed")
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "gpt-4", got["model"])
	assert.InDelta(t, 0.7, got["temperature"], 0.0001)
	assert.EqualValues(t, 4000, got["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestComplete_FreeTextOmitsResponseFormat(t *testing.T) {
	var got map[string]any
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("plain text"))
	})

	_, err := New().Complete(context.Background(), cfg, Request{System: "s", User: "u"})
	require.NoError(t, err)
	_, present := got["response_format"]
	assert.False(t, present, "response_format must be omitted for free-text generation")
}

func TestComplete_TransportFailure(t *testing.T) {
	var calls atomic.Int32
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "invalid_request_error", "message": "bad key"},
		})
	})

	_, err := New().Complete(context.Background(), cfg, Request{System: "s", User: "u"})
	var f *Failure
	require.True(t, errors.As(err, &f), "expected *Failure, got %v", err)
	assert.Equal(t, KindTransportFailure, f.Kind)
	assert.Equal(t, http.StatusUnauthorized, f.StatusCode)
	assert.Contains(t, f.Message, "401")
	assert.Equal(t, int32(1), calls.Load(), "no retries")
}

func TestComplete_NonJSONErrorBody(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := New().Complete(context.Background(), cfg, Request{System: "s", User: "u"})
	var f *Failure
	require.True(t, errors.As(err, &f), "expected *Failure, got %v", err)
	assert.Equal(t, KindTransportFailure, f.Kind)
	assert.Equal(t, http.StatusBadGateway, f.StatusCode)
}

func TestComplete_EmptyResponse(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"no choices", map[string]any{"id": "x", "object": "chat.completion", "choices": []any{}}},
		{"blank content", chatResponse("   ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(tt.body)
			})

			_, err := New().Complete(context.Background(), cfg, Request{System: "s", User: "u"})
			var f *Failure
			require.True(t, errors.As(err, &f), "expected *Failure, got %v", err)
			assert.Equal(t, KindEmptyResponse, f.Kind)
			assert.True(t, strings.Contains(f.RawResponse, `"choices"`), "raw envelope attached: %s", f.RawResponse)
		})
	}
}

func TestComplete_ExtraHeaders(t *testing.T) {
	var referer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("HTTP-Referer")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("ok"))
	}))
	t.Cleanup(server.Close)

	cfg := Config{
		BaseURL: server.URL,
		APIKey:  "k",
		Model:   "m",
		Headers: map[string]string{"HTTP-Referer": "https://vidya.example"},
	}
	_, err := New().Complete(context.Background(), cfg, Request{System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "https://vidya.example", referer)
}

func TestComplete_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := Config{BaseURL: url, APIKey: "k", Model: "m"}
	_, err := New().Complete(context.Background(), cfg, Request{System: "s", User: "u"})
	require.Error(t, err)
	var f *Failure
	assert.False(t, errors.As(err, &f), "network errors are left for the caller to classify")
}

func TestComplete_ReasoningModelRejectedLocally(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	var calls atomic.Int32
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	cfg.Model = "o1-mini"

	_, err := New().Complete(context.Background(), cfg, Request{System: "s", User: "u"})
	require.Error(t, err)
	assert.ErrorIs(t, err, openai.ErrReasoningModelMaxTokensDeprecated)
	var f *Failure
	assert.False(t, errors.As(err, &f))
	assert.Equal(t, int32(0), calls.Load())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "MaxCompletionTokens")
	assert.Contains(t, buf.String(), "o1-mini")
}
