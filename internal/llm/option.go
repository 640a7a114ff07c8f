package llm

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	URLOpenRouter = "https://openrouter.ai/api/v1"
	URLOpenAI     = "https://api.openai.com/v1"
	URLOllama     = "http://localhost:11434/v1"

	DefaultModel = "openai/gpt-4o-mini"
)

// DefaultConfig returns the settings every client starts from, without an API
// key.
func DefaultConfig() Config {
	return Config{
		BaseURL:      URLOpenRouter,
		DefaultModel: DefaultModel,
		DefaultParams: GenerationParams{
			Temperature: Ptr(0.7),
			MaxTokens:   Ptr(10000),
		},
		RequestTimeout: 30 * time.Second,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Factor:      2,
		},
	}
}

type ClientOption func(*Client) error

func WithBaseURL(url string) ClientOption {
	return func(c *Client) error {
		if url == "" {
			return newError(KindConfiguration, "base URL must not be empty")
		}
		c.cfg.BaseURL = url
		return nil
	}
}

func WithModel(model string) ClientOption {
	return func(c *Client) error {
		if model != "" {
			c.cfg.DefaultModel = model
		}
		return nil
	}
}

func WithDefaultParams(params GenerationParams) ClientOption {
	return func(c *Client) error {
		c.cfg.DefaultParams = c.cfg.DefaultParams.Merge(params)
		return nil
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		if timeout <= 0 {
			return newError(KindConfiguration, "request timeout must be positive")
		}
		c.cfg.RequestTimeout = timeout
		return nil
	}
}

func WithMaxAttempts(attempts int) ClientOption {
	return func(c *Client) error {
		if attempts < 1 {
			attempts = 1
		}
		c.cfg.Retry.MaxAttempts = attempts
		return nil
	}
}

func WithBackoff(baseDelay time.Duration, factor float64) ClientOption {
	return func(c *Client) error {
		if baseDelay < 0 {
			baseDelay = 0
		}
		if factor < 1 {
			factor = 1
		}
		c.cfg.Retry.BaseDelay = baseDelay
		c.cfg.Retry.Factor = factor
		return nil
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) error {
		if client != nil {
			c.httpClient = client
		}
		return nil
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithSleeper replaces the function used to wait between attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) error {
		if sleep != nil {
			c.sleep = sleep
		}
		return nil
	}
}
