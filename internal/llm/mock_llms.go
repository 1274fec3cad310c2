package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EchoLLM responds with "ECHO: You said: <input>" after a configurable delay
type EchoLLM struct {
	delay time.Duration
}

// NewEchoLLM creates a new EchoLLM with the specified delay in seconds
func NewEchoLLM(delaySec int) *EchoLLM {
	return &EchoLLM{
		delay: time.Duration(delaySec) * time.Second,
	}
}

// GenerateResponse implements the LanguageModel interface for a single prompt
func (e *EchoLLM) GenerateResponse(ctx context.Context, prompt string) (*Response, error) {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &Response{Text: fmt.Sprintf("ECHO: You said: %s", prompt)}, nil
}

// GenerateChat echoes the last user message in the conversation
func (e *EchoLLM) GenerateChat(ctx context.Context, messages []Message) (*Response, error) {
	return e.GenerateResponse(ctx, lastUserMessage(messages))
}

// ExceptionLLM always fails after a configurable delay
type ExceptionLLM struct {
	delay time.Duration
}

// NewExceptionLLM creates a new ExceptionLLM with the specified delay in seconds
func NewExceptionLLM(delaySec int) *ExceptionLLM {
	return &ExceptionLLM{
		delay: time.Duration(delaySec) * time.Second,
	}
}

// GenerateResponse always returns an error
func (e *ExceptionLLM) GenerateResponse(ctx context.Context, prompt string) (*Response, error) {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, errors.New("Exception occurred in this mock LLM, as expected")
}

// GenerateChat always returns an error
func (e *ExceptionLLM) GenerateChat(ctx context.Context, messages []Message) (*Response, error) {
	return e.GenerateResponse(ctx, "")
}
