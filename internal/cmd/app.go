package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/PauloHFS/giftideas/internal/config"
	"github.com/PauloHFS/giftideas/internal/ideas"
	"github.com/PauloHFS/giftideas/internal/llm"
)

// newLLMClient builds the gateway client from environment config alone.
func newLLMClient(cfg *config.Config, logger *slog.Logger) (*llm.Client, error) {
	opts := []llm.ClientOption{
		llm.WithLogger(logger),
		llm.WithModel(cfg.LLM.Model),
		llm.WithDefaultParams(llm.GenerationParams{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}),
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.LLM.BaseURL))
	}
	if cfg.LLM.Timeout > 0 {
		opts = append(opts, llm.WithTimeout(cfg.LLM.Timeout))
	}
	if cfg.LLM.MaxAttempts > 0 {
		opts = append(opts, llm.WithMaxAttempts(cfg.LLM.MaxAttempts))
	}
	if cfg.LLM.BaseDelay > 0 || cfg.LLM.Factor > 0 {
		defaults := llm.DefaultConfig().Retry
		base, factor := cfg.LLM.BaseDelay, cfg.LLM.Factor
		if base <= 0 {
			base = defaults.BaseDelay
		}
		if factor <= 0 {
			factor = defaults.Factor
		}
		opts = append(opts, llm.WithBackoff(base, factor))
	}

	return llm.NewClient(cfg.LLM.APIKey, opts...)
}

// applyOverridesFile layers the overrides file, if any, on top of base.
func applyOverridesFile(base *llm.Client, path string) (*llm.Client, error) {
	if path == "" {
		return base, nil
	}
	overrides, err := config.LoadLLMOverrides(path)
	if err != nil {
		return nil, err
	}
	return base.WithOverrides(overrides)
}

// effectiveClient is newLLMClient followed by applyOverridesFile.
func effectiveClient(cfg *config.Config, logger *slog.Logger) (*llm.Client, error) {
	base, err := newLLMClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return applyOverridesFile(base, cfg.LLM.OverridesFile)
}

// asConfigurationError keeps *llm.Error values and wraps anything else as a
// configuration failure.
func asConfigurationError(err error) error {
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return err
	}
	return &llm.Error{Kind: llm.KindConfiguration, Message: err.Error(), Cause: err}
}

func newGenerator(cfg *config.Config, gateway ideas.Gateway, logger *slog.Logger) (*ideas.Generator, error) {
	catalog, err := ideas.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	return ideas.NewGenerator(gateway, catalog, ideas.GeneratorConfig{
		CacheSize: cfg.Suggestion.CacheSize,
		CacheTTL:  cfg.Suggestion.CacheTTL,
		Logger:    logger,
	}), nil
}

// unavailableGateway stands in for the llm client when it could not be
// built, so the API stays up and reports the configuration error per request.
type unavailableGateway struct {
	err error
}

func (g unavailableGateway) ChatStructured(context.Context, llm.StructuredRequest) (*llm.StructuredResponse, error) {
	return nil, g.err
}
