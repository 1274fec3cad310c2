// Package llm abstracts the model capability behind a small chat interface.
// The OpenAI client talks to any OpenAI-compatible chat-completions endpoint
// (a configurable base URL covers LM Studio and Ollama style local servers);
// mock, echo and always-failing models back the tests.
package llm

import (
	"context"
	"errors"
)

// LanguageModel is the model capability consumed by the orchestrator.
type LanguageModel interface {
	// GenerateResponse generates a reply for a single prompt.
	GenerateResponse(ctx context.Context, prompt string) (*Response, error)

	// GenerateChat generates a reply for a conversation history.
	GenerateChat(ctx context.Context, messages []Message) (*Response, error)
}

// Common error types for LLM operations
var (
	ErrAPIKeyMissing   = errors.New("API key missing")
	ErrRateLimited     = errors.New("rate limited by provider")
	ErrInvalidResponse = errors.New("invalid response from LLM")
	ErrProviderError   = errors.New("provider returned an error")
)
