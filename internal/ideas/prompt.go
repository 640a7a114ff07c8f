package ideas

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/PauloHFS/giftideas/internal/llm"
)

// MaxSuggestions caps how many suggestions a single generation returns.
const MaxSuggestions = 5

const systemPrompt = `You are a thoughtful gift advisor. Given what is known about a person, suggest up to %d distinct, concrete gift ideas.
Each suggestion is one or two sentences: name the gift, then say briefly why it fits.
Respect the budget when one is given. Do not repeat ideas. Reply only with JSON matching the provided schema.`

var strict = bluemonday.StrictPolicy()

// sanitize strips markup from user or model text and returns plain text.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// BuildPrompt turns a normalized command into the chat messages sent to the
// gateway.
func BuildPrompt(cmd GenerateCommand, catalog *Catalog) []llm.Message {
	var hints []string

	if cmd.RelationID != nil && catalog != nil {
		if rel, ok := catalog.Relation(*cmd.RelationID); ok {
			hints = append(hints, "Relation to the giver: "+rel.Name)
		}
	}
	if cmd.OccasionID != nil && catalog != nil {
		if occ, ok := catalog.Occasion(*cmd.OccasionID); ok {
			hints = append(hints, "Occasion: "+occ.Name)
		}
	}
	if cmd.Age != nil {
		hints = append(hints, "Age: "+strconv.Itoa(*cmd.Age))
	}
	if cmd.Interests != nil {
		if s := sanitize(*cmd.Interests); s != "" {
			hints = append(hints, "Interests: "+s)
		}
	}
	if cmd.PersonDescription != nil {
		if s := sanitize(*cmd.PersonDescription); s != "" {
			hints = append(hints, "About the person: "+s)
		}
	}
	if b := budgetHint(cmd.BudgetMin, cmd.BudgetMax); b != "" {
		hints = append(hints, "Budget: "+b)
	}

	var user strings.Builder
	if len(hints) == 0 {
		user.WriteString("Nothing specific is known about the recipient. Suggest gifts with broad appeal.")
	} else {
		user.WriteString("Suggest gifts for a person with these details:\n")
		for _, h := range hints {
			user.WriteString("- ")
			user.WriteString(h)
			user.WriteString("\n")
		}
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(systemPrompt, MaxSuggestions)},
		{Role: llm.RoleUser, Content: strings.TrimRight(user.String(), "\n")},
	}
}

func budgetHint(lo, hi *float64) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	switch {
	case lo != nil && hi != nil:
		return f(*lo) + " to " + f(*hi)
	case lo != nil:
		return "at least " + f(*lo)
	case hi != nil:
		return "up to " + f(*hi)
	default:
		return ""
	}
}

// SuggestionSchema is the strict response format the model must follow.
func SuggestionSchema() *llm.ResponseFormat {
	return llm.NewJSONSchemaFormat("gift_suggestions", true, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"suggestions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"content": map[string]any{"type": "string"},
					},
					"required":             []any{"content"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"suggestions"},
		"additionalProperties": false,
	})
}
