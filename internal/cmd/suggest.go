package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/PauloHFS/giftideas/internal/config"
	"github.com/PauloHFS/giftideas/internal/ideas"
	"github.com/PauloHFS/giftideas/internal/logging"
)

type suggestFlags struct {
	age         int
	interests   string
	description string
	budgetMin   float64
	budgetMax   float64
	relationID  int64
	occasionID  int64
	asJSON      bool
}

func newSuggestCommand() *cobra.Command {
	var f suggestFlags

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Generate gift suggestions once and print them",
		Long: `Generate gift suggestions from the command line. Every hint is optional.

  giftideas suggest --age 62 --interests "gardening, jazz" --budget-max 80 --relation 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logging.Init()
			logger := logging.Get()

			client, err := effectiveClient(cfg, logger)
			if err != nil {
				return err
			}
			generator, err := newGenerator(cfg, client, logger)
			if err != nil {
				return err
			}

			result, err := generator.Generate(cmd.Context(), f.command(cmd))
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result, f.asJSON)
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&f.age, "age", 0, "recipient age")
	fl.StringVar(&f.interests, "interests", "", "recipient interests")
	fl.StringVar(&f.description, "description", "", "free-form description of the recipient")
	fl.Float64Var(&f.budgetMin, "budget-min", 0, "minimum budget")
	fl.Float64Var(&f.budgetMax, "budget-max", 0, "maximum budget")
	fl.Int64Var(&f.relationID, "relation", 0, "relation id (see GET /api/relations)")
	fl.Int64Var(&f.occasionID, "occasion", 0, "occasion id (see GET /api/occasions)")
	fl.BoolVar(&f.asJSON, "json", false, "print the result as JSON")

	return cmd
}

// command maps only the flags the user actually set.
func (f suggestFlags) command(cmd *cobra.Command) ideas.GenerateCommand {
	var c ideas.GenerateCommand
	changed := cmd.Flags().Changed

	if changed("age") {
		c.Age = &f.age
	}
	if changed("interests") {
		c.Interests = &f.interests
	}
	if changed("description") {
		c.PersonDescription = &f.description
	}
	if changed("budget-min") {
		c.BudgetMin = &f.budgetMin
	}
	if changed("budget-max") {
		c.BudgetMax = &f.budgetMax
	}
	if changed("relation") {
		c.RelationID = &f.relationID
	}
	if changed("occasion") {
		c.OccasionID = &f.occasionID
	}
	return c
}

func printResult(w io.Writer, result *ideas.GenerateResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	for i, s := range result.Suggestions {
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, s.Content); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\nmodel: %s\n", result.Metadata.Model)
	return err
}
