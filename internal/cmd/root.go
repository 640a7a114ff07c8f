package cmd

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// NewRootCommand returns the giftideas CLI. Without a subcommand it starts the
// server.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "giftideas",
		Short: "Gift ideas API backed by an LLM gateway",
		Long: `giftideas serves AI generated gift suggestions over a JSON API.

  giftideas server                                   Start the API server (default)
  giftideas suggest --age 30 --interests "climbing"  Generate suggestions once
  giftideas config                                   Print the effective gateway config`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServer(cmd.Context())
		},
	}

	root.AddCommand(newServerCommand(), newSuggestCommand(), newConfigCommand())
	return root
}

func newServerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServer(cmd.Context())
		},
	}
}
