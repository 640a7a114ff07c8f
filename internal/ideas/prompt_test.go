package ideas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PauloHFS/giftideas/internal/llm"
)

func TestBuildPrompt(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	msgs := BuildPrompt(GenerateCommand{
		Age:               ptr(62),
		Interests:         ptr("gardening & <script>alert(1)</script>jazz"),
		PersonDescription: ptr("retired nurse"),
		BudgetMin:         ptr(20.0),
		BudgetMax:         ptr(75.5),
		RelationID:        ptr(int64(2)),
		OccasionID:        ptr(int64(1)),
	}, catalog)

	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "up to 5")

	user := msgs[1].Content
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Contains(t, user, "Relation to the giver: Mother")
	assert.Contains(t, user, "Occasion: Birthday")
	assert.Contains(t, user, "Age: 62")
	assert.Contains(t, user, "Interests: gardening & jazz")
	assert.Contains(t, user, "About the person: retired nurse")
	assert.Contains(t, user, "Budget: 20 to 75.5")
	assert.NotContains(t, user, "script")
}

func TestBuildPrompt_NoHints(t *testing.T) {
	msgs := BuildPrompt(GenerateCommand{}, nil)

	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "Nothing specific is known"))
}

func TestBudgetHint(t *testing.T) {
	assert.Equal(t, "at least 10", budgetHint(ptr(10.0), nil))
	assert.Equal(t, "up to 99.99", budgetHint(nil, ptr(99.99)))
	assert.Equal(t, "", budgetHint(nil, nil))
}

func TestSuggestionSchema(t *testing.T) {
	rf := SuggestionSchema()

	assert.Equal(t, llm.ResponseFormatJSONSchema, rf.Type)
	require.NotNil(t, rf.JSONSchema)
	assert.True(t, rf.JSONSchema.Strict)
	assert.Equal(t, []any{"suggestions"}, rf.JSONSchema.Schema["required"])
}

func TestNormalize(t *testing.T) {
	cmd := GenerateCommand{Interests: ptr("   "), PersonDescription: ptr("  kind  ")}.Normalize()

	assert.Nil(t, cmd.Interests)
	require.NotNil(t, cmd.PersonDescription)
	assert.Equal(t, "kind", *cmd.PersonDescription)
}

func TestValidate_Lengths(t *testing.T) {
	long := strings.Repeat("ż", 1001)
	res := GenerateCommand{Interests: &long, OccasionID: ptr(int64(-1))}.Validate(nil)

	assert.False(t, res.Valid)
	assert.ElementsMatch(t, []string{
		"interests: cannot exceed 1000 characters",
		"occasion_id: must be greater than 0",
	}, res.Details())
}

func TestCatalog(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	rels := catalog.Relations()
	require.NotEmpty(t, rels)
	for i := 1; i < len(rels); i++ {
		assert.LessOrEqual(t, rels[i-1].Name, rels[i].Name)
	}

	occ, ok := catalog.Occasion(2)
	assert.True(t, ok)
	assert.Equal(t, "Christmas", occ.Name)

	_, ok = catalog.Relation(0)
	assert.False(t, ok)

	_, err = ParseCatalog([]byte("relations:\n  - {id: 1, name: A}\n  - {id: 1, name: B}\n"))
	assert.Error(t, err)
}
