package llm

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suggestionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"suggestions": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "object"},
		},
	},
	"required": []string{"suggestions"},
}

func structuredRequest() StructuredRequest {
	return StructuredRequest{
		ChatRequest:    ChatRequest{Messages: hello},
		ResponseFormat: NewJSONSchemaFormat("gift_suggestions", true, suggestionSchema),
	}
}

func TestChatStructured_ParsesObject(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeCompletion(w, `{"suggestions":[]}`)
	})
	c, _ := newTestClient(t, g.server.URL)

	resp, err := c.ChatStructured(context.Background(), structuredRequest())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"suggestions": []any{}}, resp.Data)
	assert.Equal(t, `{"suggestions":[]}`, resp.Content)

	rf, ok := g.bodies[0]["response_format"].(map[string]any)
	require.True(t, ok, "response_format must be sent")
	assert.Equal(t, "json_schema", rf["type"])
	schema := rf["json_schema"].(map[string]any)
	assert.Equal(t, "gift_suggestions", schema["name"])
	assert.Equal(t, true, schema["strict"])
	assert.NotNil(t, schema["schema"])
}

func TestChatStructured_RejectsBadReplies(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantMessage string
	}{
		{"not json", "not json", "failed to parse structured response as JSON"},
		{"number", "42", "not a valid JSON object"},
		{"null", "null", "not a valid JSON object"},
		{"array", `[{"content":"book"}]`, "not a valid JSON object"},
		{"string", `"hello"`, "not a valid JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGateway(t, func(w http.ResponseWriter, r *http.Request, call int) {
				writeCompletion(w, tt.content)
			})
			c, rec := newTestClient(t, g.server.URL)

			_, err := c.ChatStructured(context.Background(), structuredRequest())

			var llmErr *Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, KindValidation, llmErr.Kind)
			assert.Contains(t, llmErr.Message, tt.wantMessage)
			assert.Equal(t, 1, g.Calls())
			assert.Empty(t, rec.delays)
		})
	}
}

func TestChatStructured_InvalidResponseFormat(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeCompletion(w, `{}`)
	})
	c, _ := newTestClient(t, g.server.URL)

	tests := []struct {
		name string
		rf   *ResponseFormat
	}{
		{"missing", nil},
		{"wrong type", &ResponseFormat{Type: "json_object", JSONSchema: &JSONSchema{Name: "x", Schema: suggestionSchema}}},
		{"missing json_schema", &ResponseFormat{Type: ResponseFormatJSONSchema}},
		{"empty name", NewJSONSchemaFormat("", true, suggestionSchema)},
		{"blank name", NewJSONSchemaFormat("  ", true, suggestionSchema)},
		{"missing schema", NewJSONSchemaFormat("gift_suggestions", true, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ChatStructured(context.Background(), StructuredRequest{
				ChatRequest:    ChatRequest{Messages: hello},
				ResponseFormat: tt.rf,
			})
			require.Error(t, err)
			assert.Equal(t, KindInvalidInput, KindOf(err))
		})
	}

	t.Run("messages are validated too", func(t *testing.T) {
		req := structuredRequest()
		req.Messages = nil
		_, err := c.ChatStructured(context.Background(), req)
		assert.Equal(t, KindInvalidInput, KindOf(err))
	})

	assert.Equal(t, 0, g.Calls())
}

func TestDecodeStructured(t *testing.T) {
	type suggestion struct {
		Content string `json:"content"`
	}
	type payload struct {
		Suggestions []suggestion `json:"suggestions"`
	}

	g := newGateway(t, func(w http.ResponseWriter, r *http.Request, call int) {
		if call == 1 {
			writeCompletion(w, `{"suggestions":[{"content":"Board game"},{"content":"Cooking class"}]}`)
			return
		}
		writeCompletion(w, `{"suggestions":"none"}`)
	})
	c, _ := newTestClient(t, g.server.URL)

	resp, err := c.ChatStructured(context.Background(), structuredRequest())
	require.NoError(t, err)

	got, err := DecodeStructured[payload](resp)
	require.NoError(t, err)
	assert.Equal(t, payload{Suggestions: []suggestion{{"Board game"}, {"Cooking class"}}}, got)

	resp, err = c.ChatStructured(context.Background(), structuredRequest())
	require.NoError(t, err)

	_, err = DecodeStructured[payload](resp)
	assert.Equal(t, KindValidation, KindOf(err))
}
