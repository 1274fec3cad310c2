package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockLLM implements LanguageModel for testing. By default it answers with a
// fixed prefix plus the last user message; scripted replies let a test make
// the model emit exact text, directives included.
type MockLLM struct {
	mu             sync.Mutex
	responsePrefix string
	delay          time.Duration
	replies        []string
	next           int
	history        []MockInteraction
}

// MockInteraction records an interaction for test verification
type MockInteraction struct {
	Messages []Message
	Response string
	Time     time.Time
}

// MockOption is a function that configures a MockLLM
type MockOption func(*MockLLM)

// NewMockLLM creates a new mock LLM with the specified options
func NewMockLLM(options ...MockOption) *MockLLM {
	mock := &MockLLM{
		responsePrefix: "Thank you for asking me: ",
	}
	for _, option := range options {
		option(mock)
	}
	return mock
}

// WithMockPrefix sets the response prefix used when no replies are scripted.
func WithMockPrefix(prefix string) MockOption {
	return func(m *MockLLM) {
		m.responsePrefix = prefix
	}
}

// WithMockDelay adds an artificial processing delay.
func WithMockDelay(delay time.Duration) MockOption {
	return func(m *MockLLM) {
		m.delay = delay
	}
}

// WithMockReplies scripts the replies returned in order. After the last one
// the mock keeps repeating it.
func WithMockReplies(replies ...string) MockOption {
	return func(m *MockLLM) {
		m.replies = replies
	}
}

// GenerateResponse generates a reply for a single prompt.
func (m *MockLLM) GenerateResponse(ctx context.Context, prompt string) (*Response, error) {
	return m.GenerateChat(ctx, []Message{{Role: "user", Content: prompt}})
}

// GenerateChat generates a reply for a conversation history.
func (m *MockLLM) GenerateChat(ctx context.Context, messages []Message) (*Response, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var response string
	if len(m.replies) > 0 {
		response = m.replies[m.next]
		if m.next < len(m.replies)-1 {
			m.next++
		}
	} else {
		response = fmt.Sprintf("%s%s", m.responsePrefix, lastUserMessage(messages))
	}

	m.history = append(m.history, MockInteraction{
		Messages: append([]Message(nil), messages...),
		Response: response,
		Time:     time.Now(),
	})

	return &Response{
		Text: response,
		Usage: Usage{
			PromptTokens:     len(messages),
			CompletionTokens: 1,
			TotalTokens:      len(messages) + 1,
		},
	}, nil
}

// History returns a copy of the recorded interactions.
func (m *MockLLM) History() []MockInteraction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockInteraction(nil), m.history...)
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
