package llm

import (
	"log/slog"
	"strings"
)

// Configuration keys, shared by cobra flags, viper and the VIDYA_ environment.
const (
	KeyAPIKey  = "llm-key"
	KeyBaseURL = "llm-url"
	KeyModel   = "llm-model"
	KeyHeaders = "llm-headers"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4"
)

const notConfiguredMessage = "LLM API is not configured. To enable AI features, set the VIDYA_LLM_KEY " +
	"environment variable (or the --llm-key flag) and restart the server."

// Source provides raw configuration values. *viper.Viper satisfies it.
type Source interface {
	GetString(key string) string
	GetStringMapString(key string) map[string]string
}

// Config is a resolved LLM endpoint configuration. It is built per request and
// must never be persisted; LogValue keeps the key out of log records.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Headers map[string]string
}

// LogValue implements slog.LogValuer.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base_url", c.BaseURL),
		slog.String("model", c.Model),
	)
}

// Resolve reads the LLM configuration from src. A missing credential yields a
// *Failure of kind KindConfigInvalid instead of a panic so callers can show
// setup instructions.
func Resolve(src Source) (Config, error) {
	if src == nil {
		return Config{}, NewFailure(KindConfigInvalid, notConfiguredMessage)
	}

	apiKey := strings.TrimSpace(src.GetString(KeyAPIKey))
	if apiKey == "" {
		return Config{}, NewFailure(KindConfigInvalid, notConfiguredMessage)
	}

	baseURL := strings.TrimSpace(src.GetString(KeyBaseURL))
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(src.GetString(KeyModel))
	if model == "" {
		model = DefaultModel
	}

	headers := make(map[string]string)
	for k, v := range src.GetStringMapString(KeyHeaders) {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"
	headers["Authorization"] = "Bearer " + apiKey

	return Config{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Headers: headers,
	}, nil
}

// StaticSource is a fixed Source, handy for CLI flags and tests.
type StaticSource map[string]string

func (s StaticSource) GetString(key string) string { return s[key] }

// GetStringMapString returns nothing: static sources carry no extra headers.
func (s StaticSource) GetStringMapString(string) map[string]string { return nil }
