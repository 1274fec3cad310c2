package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mymy770/Clara/internal/logging"
)

// DefaultBaseURL is the standard OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// OpenAILLM talks to any OpenAI-compatible chat-completions endpoint.
type OpenAILLM struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	client      *http.Client
	logger      *logging.Logger
}

// OpenAIOption is a function that configures an OpenAILLM
type OpenAIOption func(*OpenAILLM)

// NewOpenAILLM creates a new OpenAI LLM with the specified options
func NewOpenAILLM(apiKey string, options ...OpenAIOption) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	llm := &OpenAILLM{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       "gpt-4o",
		temperature: 0.7,
		maxTokens:   1024,
		client:      &http.Client{Timeout: 120 * time.Second},
		logger:      logging.Get(),
	}
	for _, option := range options {
		option(llm)
	}
	return llm, nil
}

// WithOpenAIModel sets the model for the OpenAI LLM
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *OpenAILLM) {
		o.model = model
	}
}

// WithOpenAIBaseURL points the client at a different OpenAI-compatible
// endpoint, such as a local LM Studio or Ollama server.
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(o *OpenAILLM) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithOpenAITemperature sets the temperature for the OpenAI LLM
func WithOpenAITemperature(temp float32) OpenAIOption {
	return func(o *OpenAILLM) {
		o.temperature = temp
	}
}

// WithOpenAIMaxTokens sets the max tokens for the OpenAI LLM
func WithOpenAIMaxTokens(maxTokens int) OpenAIOption {
	return func(o *OpenAILLM) {
		o.maxTokens = maxTokens
	}
}

// WithOpenAIHTTPClient overrides the HTTP client, mainly for tests.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(o *OpenAILLM) {
		o.client = client
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateResponse generates a reply for a single prompt.
func (o *OpenAILLM) GenerateResponse(ctx context.Context, prompt string) (*Response, error) {
	return o.GenerateChat(ctx, []Message{{Role: "user", Content: prompt}})
}

// GenerateChat posts the conversation to the chat-completions endpoint and
// returns the first choice plus token usage.
func (o *OpenAILLM) GenerateChat(ctx context.Context, messages []Message) (*Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(o.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, o.mapError(resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrInvalidResponse)
	}

	o.logger.Debug("Chat completion received",
		"model", o.model,
		"prompt_tokens", parsed.Usage.PromptTokens,
		"completion_tokens", parsed.Usage.CompletionTokens)

	return &Response{
		Text:  parsed.Choices[0].Message.Content,
		Usage: parsed.Usage,
	}, nil
}

func (o *OpenAILLM) mapError(status int, body []byte) error {
	message := "unknown error"
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		message = parsed.Error.Message
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAPIKeyMissing, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	}
	return fmt.Errorf("%w: status %d: %s", ErrProviderError, status, message)
}
