package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/PauloHFS/giftideas/internal/config"
	"github.com/PauloHFS/giftideas/internal/llm"
	"github.com/PauloHFS/giftideas/internal/logging"
)

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective gateway configuration",
		Long: `Print the gateway configuration after environment variables and the
LLM_OVERRIDES_FILE have been applied. The API key is always redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			client, err := effectiveClient(cfg, logging.Get())
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), client.DescribeConfig())
		},
	}
}

type configView struct {
	APIKey         string               `yaml:"api_key"`
	BaseURL        string               `yaml:"base_url"`
	DefaultModel   string               `yaml:"default_model"`
	DefaultParams  llm.GenerationParams `yaml:"default_params"`
	RequestTimeout string               `yaml:"request_timeout"`
	Retry          struct {
		MaxAttempts int     `yaml:"max_attempts"`
		BaseDelay   string  `yaml:"base_delay"`
		Factor      float64 `yaml:"factor"`
	} `yaml:"retry"`
}

func writeConfig(w io.Writer, c llm.Config) error {
	v := configView{
		APIKey:         c.APIKey,
		BaseURL:        c.BaseURL,
		DefaultModel:   c.DefaultModel,
		DefaultParams:  c.DefaultParams,
		RequestTimeout: c.RequestTimeout.String(),
	}
	v.Retry.MaxAttempts = c.Retry.MaxAttempts
	v.Retry.BaseDelay = c.Retry.BaseDelay.String()
	v.Retry.Factor = c.Retry.Factor

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
