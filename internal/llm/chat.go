package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Chat sends one chat completion and returns the first choice.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	if err := validateMessages(req.Messages); err != nil {
		return nil, err
	}

	payload := c.toPayload(req)

	var resp *Response
	err := c.observe(ctx, "chat", payload.Model, func(ctx context.Context) (Usage, error) {
		completion, err := c.send(ctx, payload)
		if err != nil {
			return Usage{}, err
		}
		resp, err = parseCompletion(completion)
		if err != nil {
			return Usage{}, err
		}
		return resp.Usage, nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// ChatStructured is Chat with a json_schema response format. The reply must
// parse as a JSON object.
func (c *Client) ChatStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	if err := validateMessages(req.Messages); err != nil {
		return nil, err
	}
	if err := validateResponseFormat(req.ResponseFormat); err != nil {
		return nil, err
	}

	payload := c.toPayload(req.ChatRequest)
	payload.ResponseFormat = req.ResponseFormat

	var resp *StructuredResponse
	err := c.observe(ctx, "chat_structured", payload.Model, func(ctx context.Context) (Usage, error) {
		completion, err := c.send(ctx, payload)
		if err != nil {
			return Usage{}, err
		}
		chat, err := parseCompletion(completion)
		if err != nil {
			return Usage{}, err
		}
		resp, err = parseStructured(chat)
		if err != nil {
			return chat.Usage, err
		}
		return chat.Usage, nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// DecodeStructured decodes the structured payload of resp into a T.
func DecodeStructured[T any](resp *StructuredResponse) (T, error) {
	var out T
	if err := resp.Decode(&out); err != nil {
		return out, &Error{
			Kind:    KindValidation,
			Message: "structured response does not match the expected shape: " + err.Error(),
			Cause:   err,
		}
	}
	return out, nil
}

func (c *Client) toPayload(req ChatRequest) completionRequest {
	model := req.Model
	if model == "" {
		model = c.cfg.DefaultModel
	}

	return completionRequest{
		Model:            model,
		Messages:         req.Messages,
		GenerationParams: cloneParams(c.cfg.DefaultParams).Merge(req.Params),
	}
}

func validateMessages(messages []Message) error {
	if len(messages) == 0 {
		return newError(KindInvalidInput, "messages array is required and must not be empty")
	}

	for i, m := range messages {
		if !m.Role.valid() {
			return newError(KindInvalidInput, "invalid role at message %d: must be 'system', 'user', or 'assistant'", i)
		}
		if strings.TrimSpace(m.Content) == "" {
			return newError(KindInvalidInput, "invalid content at message %d: must be a non-empty string", i)
		}
	}

	return nil
}

func validateResponseFormat(rf *ResponseFormat) error {
	switch {
	case rf == nil:
		return newError(KindInvalidInput, "response_format is required")
	case rf.Type != ResponseFormatJSONSchema:
		return newError(KindInvalidInput, "response_format.type must be 'json_schema'")
	case rf.JSONSchema == nil:
		return newError(KindInvalidInput, "response_format.json_schema is required")
	case strings.TrimSpace(rf.JSONSchema.Name) == "":
		return newError(KindInvalidInput, "response_format.json_schema.name is required and must be a non-empty string")
	case rf.JSONSchema.Schema == nil:
		return newError(KindInvalidInput, "response_format.json_schema.schema is required")
	}
	return nil
}

func parseCompletion(completion *completionResponse) (*Response, error) {
	if len(completion.Choices) == 0 {
		return nil, newError(KindProviderError, "gateway response has no choices")
	}

	first := completion.Choices[0]
	if first.Message == nil || first.Message.Content == "" {
		return nil, newError(KindProviderError, "gateway response choice has no message content")
	}

	return &Response{
		Content: first.Message.Content,
		Model:   completion.Model,
		Usage:   completion.Usage,
	}, nil
}

func parseStructured(resp *Response) (*StructuredResponse, error) {
	var parsed any
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil, &Error{
			Kind:    KindValidation,
			Message: "failed to parse structured response as JSON: " + err.Error(),
			Cause:   err,
		}
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, newError(KindValidation, "structured response is not a valid JSON object")
	}

	return &StructuredResponse{
		Response: *resp,
		Data:     obj,
		Raw:      json.RawMessage(resp.Content),
	}, nil
}
