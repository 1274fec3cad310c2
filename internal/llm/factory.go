package llm

import (
	"fmt"
	"os"
	"strings"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderMock      = "mock"
	ProviderEcho      = "echo"
	ProviderException = "exception"
)

// NewLLM creates a language model from configuration. An empty APIKey for
// the openai provider falls back to the OPENAI_API_KEY environment variable.
func NewLLM(config Config) (LanguageModel, error) {
	switch strings.ToLower(config.Provider) {
	case ProviderOpenAI:
		apiKey := config.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAILLM(apiKey,
			WithOpenAIModel(config.Model),
			WithOpenAIBaseURL(config.BaseURL),
			WithOpenAITemperature(config.Temperature),
			WithOpenAIMaxTokens(config.MaxTokens),
		)
	case ProviderMock:
		return NewMockLLM(), nil
	case ProviderEcho:
		return NewEchoLLM(clampDelay(config.DelaySeconds)), nil
	case ProviderException:
		return NewExceptionLLM(clampDelay(config.DelaySeconds)), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

func clampDelay(delaySec int) int {
	if delaySec < 0 {
		return 0
	}
	if delaySec > 10 {
		return 10
	}
	return delaySec
}
