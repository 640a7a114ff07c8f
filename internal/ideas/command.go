package ideas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/PauloHFS/giftideas/internal/validator"
)

// GenerateCommand carries the optional hints about the gift recipient.
type GenerateCommand struct {
	Age               *int     `json:"age,omitempty" validate:"omitempty,min=1,max=500"`
	Interests         *string  `json:"interests,omitempty" validate:"omitempty,max=1000"`
	PersonDescription *string  `json:"person_description,omitempty" validate:"omitempty,max=1000"`
	BudgetMin         *float64 `json:"budget_min,omitempty" validate:"omitempty,gte=0"`
	BudgetMax         *float64 `json:"budget_max,omitempty" validate:"omitempty,gte=0"`
	RelationID        *int64   `json:"relation_id,omitempty" validate:"omitempty,gt=0"`
	OccasionID        *int64   `json:"occasion_id,omitempty" validate:"omitempty,gt=0"`
}

// Normalize trims the free-text hints and drops the empty ones.
func (c GenerateCommand) Normalize() GenerateCommand {
	c.Interests = trimmed(c.Interests)
	c.PersonDescription = trimmed(c.PersonDescription)
	return c
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Validate checks field rules and that referenced ids exist in the catalog.
// The command should be normalized first.
func (c GenerateCommand) Validate(catalog *Catalog) validator.ValidationResult {
	result := validator.Struct(c)

	if c.BudgetMin != nil && c.BudgetMax != nil && *c.BudgetMax < *c.BudgetMin {
		result.Add("budget_max", "must be greater than or equal to budget_min")
	}

	if catalog != nil {
		if c.RelationID != nil && *c.RelationID > 0 {
			if _, ok := catalog.Relation(*c.RelationID); !ok {
				result.Add("relation_id", "unknown relation")
			}
		}
		if c.OccasionID != nil && *c.OccasionID > 0 {
			if _, ok := catalog.Occasion(*c.OccasionID); !ok {
				result.Add("occasion_id", "unknown occasion")
			}
		}
	}

	return result
}

func (c GenerateCommand) cacheKey() string {
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// InvalidCommandError reports a command that failed validation.
type InvalidCommandError struct {
	Details []string
}

func (e *InvalidCommandError) Error() string {
	return "invalid generate command: " + strings.Join(e.Details, "; ")
}
