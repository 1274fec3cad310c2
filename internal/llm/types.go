package llm

// Message represents a single message in a conversation
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Usage contains token accounting for one request
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response encapsulates a standard response from a language model
type Response struct {
	Text  string
	Usage Usage
}

// Config selects and configures a provider for the factory.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int

	// DelaySeconds applies to the echo and exception test providers only.
	DelaySeconds int
}
