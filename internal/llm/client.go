package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/PauloHFS/giftideas/internal/httpclient"
	"github.com/PauloHFS/giftideas/internal/logging"
)

const completionsPath = "/chat/completions"

// Client talks to an OpenAI-compatible chat completion gateway. It is safe
// for concurrent use; its configuration never changes after construction.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient builds a client from DefaultConfig plus opts. A blank apiKey
// fails with KindConfiguration.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, newError(KindConfiguration, "API key is required and must be a non-empty string")
	}

	cfg := DefaultConfig()
	cfg.APIKey = apiKey

	c := &Client{
		cfg:        cfg,
		httpClient: httpclient.New(httpclient.Config{Name: "llm-gateway"}).Client,
		logger:     logging.Get(),
		sleep:      sleepContext,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// WithOverrides returns a new client whose config is the current one with
// overrides applied. Retry policy and default params merge field by field.
func (c *Client) WithOverrides(overrides ConfigOverrides) (*Client, error) {
	cfg := mergeConfig(c.config(), overrides)
	cfg.DefaultParams = cloneParams(cfg.DefaultParams)
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, newError(KindConfiguration, "API key is required and must be a non-empty string")
	}
	if cfg.BaseURL == "" {
		return nil, newError(KindConfiguration, "base URL must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, newError(KindConfiguration, "request timeout must be positive")
	}

	return &Client{
		cfg:        cfg,
		httpClient: c.httpClient,
		logger:     c.logger,
		sleep:      c.sleep,
	}, nil
}

// DescribeConfig returns a copy of the config with the API key redacted.
func (c *Client) DescribeConfig() Config {
	cfg := c.config()
	cfg.APIKey = redacted
	return cfg
}

// config returns a copy that shares no pointers with c.cfg.
func (c *Client) config() Config {
	cfg := c.cfg
	cfg.DefaultParams = cloneParams(c.cfg.DefaultParams)
	return cfg
}

func cloneParams(p GenerationParams) GenerationParams {
	var out GenerationParams
	if p.Temperature != nil {
		out.Temperature = Ptr(*p.Temperature)
	}
	if p.TopP != nil {
		out.TopP = Ptr(*p.TopP)
	}
	if p.MaxTokens != nil {
		out.MaxTokens = Ptr(*p.MaxTokens)
	}
	if p.FrequencyPenalty != nil {
		out.FrequencyPenalty = Ptr(*p.FrequencyPenalty)
	}
	if p.PresencePenalty != nil {
		out.PresencePenalty = Ptr(*p.PresencePenalty)
	}
	return out
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.Retry.BaseDelay
	b.Multiplier = c.cfg.Retry.Factor
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// send posts payload and returns the decoded completion, retrying transient
// failures. The delay before retry n is BaseDelay*Factor^n unless the gateway
// asked for a specific wait with Retry-After.
func (c *Client) send(ctx context.Context, payload completionRequest) (*completionResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Message: "failed to marshal request", Cause: err}
	}

	url := c.buildURL(completionsPath)
	bo := c.newBackoff()
	span := trace.SpanFromContext(ctx)

	for attempt := 0; ; attempt++ {
		completion, failure := c.attempt(ctx, url, body)
		if failure == nil {
			return completion, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}

		delay := bo.NextBackOff()
		if failure.Kind == KindRateLimit && failure.RetryAfter > 0 {
			delay = failure.RetryAfter
		}

		if !failure.Kind.Retryable() || attempt >= c.cfg.Retry.MaxAttempts-1 {
			return nil, failure
		}

		recordRetry(failure.Kind)
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("llm.attempt", attempt+1),
			attribute.String("llm.error_kind", string(failure.Kind)),
			attribute.Int64("llm.delay_ms", delay.Milliseconds()),
		))
		c.logger.WarnContext(ctx, "llm request failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", c.cfg.Retry.MaxAttempts),
			slog.String("kind", string(failure.Kind)),
			slog.Int("status", failure.StatusCode),
			slog.Duration("delay", delay),
			slog.String("error", failure.Message),
		)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, cancelled(err)
		}
	}
}

func (c *Client) attempt(ctx context.Context, url string, body []byte) (*completionResponse, *Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(attemptCtx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(attemptCtx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp, data)
	}

	var completion completionResponse
	if err := json.Unmarshal(data, &completion); err != nil {
		return nil, &Error{
			Kind:       KindProviderError,
			Message:    "failed to decode gateway response",
			StatusCode: resp.StatusCode,
			Cause:      err,
		}
	}

	return &completion, nil
}

func (c *Client) transportError(attemptCtx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &Error{
			Kind:    KindTimeout,
			Message: "request timeout after " + c.cfg.RequestTimeout.String(),
			Cause:   err,
		}
	}
	return &Error{Kind: KindNetwork, Message: "network error: " + err.Error(), Cause: err}
}

func statusError(resp *http.Response, body []byte) *Error {
	msg := errorMessage(resp, body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{
			Kind:       KindRateLimit,
			Message:    msg,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 500:
		return &Error{Kind: KindProviderError, Message: msg, StatusCode: resp.StatusCode}
	default:
		return &Error{Kind: KindUnknown, Message: msg, StatusCode: resp.StatusCode}
	}
}

// cancelled maps the end of the caller's context to an *Error that still
// unwraps to the context error.
func cancelled(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "request deadline exceeded", Cause: err}
	}
	return &Error{Kind: KindUnknown, Message: "request cancelled", Cause: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
