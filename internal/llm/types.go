package llm

import (
	"encoding/json"
	"log/slog"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerationParams holds optional sampling parameters. A nil field is left to
// the next layer down (client defaults, then the gateway).
type GenerationParams struct {
	Temperature      *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty"`
}

// Merge returns p with every non-nil field of over applied on top.
func (p GenerationParams) Merge(over GenerationParams) GenerationParams {
	if over.Temperature != nil {
		p.Temperature = over.Temperature
	}
	if over.TopP != nil {
		p.TopP = over.TopP
	}
	if over.MaxTokens != nil {
		p.MaxTokens = over.MaxTokens
	}
	if over.FrequencyPenalty != nil {
		p.FrequencyPenalty = over.FrequencyPenalty
	}
	if over.PresencePenalty != nil {
		p.PresencePenalty = over.PresencePenalty
	}
	return p
}

const ResponseFormatJSONSchema = "json_schema"

type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// NewJSONSchemaFormat builds the only response format the gateway contract
// supports.
func NewJSONSchemaFormat(name string, strict bool, schema map[string]any) *ResponseFormat {
	return &ResponseFormat{
		Type: ResponseFormatJSONSchema,
		JSONSchema: &JSONSchema{
			Name:   name,
			Strict: strict,
			Schema: schema,
		},
	}
}

type ChatRequest struct {
	Messages []Message
	// Model overrides the client's default model when set.
	Model  string
	Params GenerationParams
}

type StructuredRequest struct {
	ChatRequest
	ResponseFormat *ResponseFormat
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// StructuredResponse carries a reply that parsed to a JSON object.
type StructuredResponse struct {
	Response
	Data map[string]any  `json:"structured_data"`
	Raw  json.RawMessage `json:"-"`
}

// Decode unmarshals the raw structured payload into v.
func (r *StructuredResponse) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

// completionRequest is the wire body sent to {baseURL}/chat/completions.
type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	GenerationParams
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Created int64    `json:"created"`
}

type choice struct {
	Message *struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Factor      float64       `yaml:"factor"`
}

// Config is the immutable configuration of a Client.
type Config struct {
	APIKey         string
	BaseURL        string
	DefaultModel   string
	DefaultParams  GenerationParams
	RequestTimeout time.Duration
	Retry          RetryPolicy
}

const redacted = "***REDACTED***"

func (c Config) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("api_key", redacted),
		slog.String("base_url", c.BaseURL),
		slog.String("default_model", c.DefaultModel),
		slog.Duration("request_timeout", c.RequestTimeout),
		slog.Int("retry_max_attempts", c.Retry.MaxAttempts),
		slog.Duration("retry_base_delay", c.Retry.BaseDelay),
		slog.Float64("retry_factor", c.Retry.Factor),
	}
	if c.DefaultParams.Temperature != nil {
		attrs = append(attrs, slog.Float64("temperature", *c.DefaultParams.Temperature))
	}
	if c.DefaultParams.MaxTokens != nil {
		attrs = append(attrs, slog.Int("max_tokens", *c.DefaultParams.MaxTokens))
	}
	return slog.GroupValue(attrs...)
}

// RetryOverrides and ConfigOverrides describe partial updates for
// Client.WithOverrides. Nil fields keep the current value.
type RetryOverrides struct {
	MaxAttempts *int           `yaml:"max_attempts,omitempty"`
	BaseDelay   *time.Duration `yaml:"base_delay,omitempty"`
	Factor      *float64       `yaml:"factor,omitempty"`
}

type ConfigOverrides struct {
	APIKey         *string          `yaml:"-"`
	BaseURL        *string          `yaml:"base_url,omitempty"`
	DefaultModel   *string          `yaml:"default_model,omitempty"`
	DefaultParams  GenerationParams `yaml:"default_params,omitempty"`
	RequestTimeout *time.Duration   `yaml:"request_timeout,omitempty"`
	Retry          RetryOverrides   `yaml:"retry,omitempty"`
}

func mergeRetry(base RetryPolicy, over RetryOverrides) RetryPolicy {
	if over.MaxAttempts != nil {
		base.MaxAttempts = *over.MaxAttempts
	}
	if over.BaseDelay != nil {
		base.BaseDelay = *over.BaseDelay
	}
	if over.Factor != nil {
		base.Factor = *over.Factor
	}
	return base
}

func mergeConfig(base Config, over ConfigOverrides) Config {
	if over.APIKey != nil {
		base.APIKey = *over.APIKey
	}
	if over.BaseURL != nil {
		base.BaseURL = *over.BaseURL
	}
	if over.DefaultModel != nil {
		base.DefaultModel = *over.DefaultModel
	}
	if over.RequestTimeout != nil {
		base.RequestTimeout = *over.RequestTimeout
	}
	base.Retry = mergeRetry(base.Retry, over.Retry)
	base.DefaultParams = base.DefaultParams.Merge(over.DefaultParams)
	return base
}

// Ptr is a small helper for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}
