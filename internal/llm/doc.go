// Package llm provides a client for OpenAI-compatible chat completion
// gateways such as OpenRouter.
//
// # Quick Start
//
//	client, err := llm.NewClient(os.Getenv("OPENROUTER_API_KEY"),
//	    llm.WithModel("openai/gpt-4o-mini"),
//	    llm.WithTimeout(20*time.Second),
//	)
//
// # Chat
//
//	resp, err := client.Chat(ctx, llm.ChatRequest{
//	    Messages: []llm.Message{
//	        {Role: llm.RoleSystem, Content: "You are a helpful assistant."},
//	        {Role: llm.RoleUser, Content: "Hello!"},
//	    },
//	})
//
// # Structured output
//
//	resp, err := client.ChatStructured(ctx, llm.StructuredRequest{
//	    ChatRequest:    llm.ChatRequest{Messages: msgs},
//	    ResponseFormat: llm.NewJSONSchemaFormat("gift_suggestions", true, schema),
//	})
//	payload, err := llm.DecodeStructured[Suggestions](resp)
//
// # Errors
//
// Every failure is an *llm.Error. Branch on its Kind, or use errors.Is with
// the sentinels:
//
//	if errors.Is(err, llm.ErrRateLimit) {
//	    // try again later
//	}
//
// RATE_LIMIT, PROVIDER_ERROR, TIMEOUT and NETWORK failures are retried up to
// Config.Retry.MaxAttempts times, waiting BaseDelay*Factor^attempt between
// attempts, or the gateway's Retry-After for 429 responses.
package llm
