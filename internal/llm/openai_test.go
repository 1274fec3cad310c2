package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymy770/Clara/internal/logging"
)

func TestMain(m *testing.M) {
	logging.Init(logging.DevNull())
	os.Exit(m.Run())
}

func TestOpenAIGenerateChat(t *testing.T) {
	var gotAuth string
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Hello there."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}))
	defer server.Close()

	model, err := NewOpenAILLM("sk-test", WithOpenAIBaseURL(server.URL), WithOpenAIModel("gpt-4o"))
	require.NoError(t, err)

	resp, err := model.GenerateChat(context.Background(), []Message{
		{Role: "system", Content: "You are Clara."},
		{Role: "user", Content: "Hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there.", resp.Text)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
}

func TestOpenAIAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	model, err := NewOpenAILLM("sk-bad", WithOpenAIBaseURL(server.URL))
	require.NoError(t, err)

	_, err = model.GenerateChat(context.Background(), []Message{{Role: "user", Content: "Hi"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAPIKeyMissing))
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestOpenAIRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "slow down"}}`))
	}))
	defer server.Close()

	model, err := NewOpenAILLM("sk-test", WithOpenAIBaseURL(server.URL))
	require.NoError(t, err)

	_, err = model.GenerateChat(context.Background(), []Message{{Role: "user", Content: "Hi"}})
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestOpenAIEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	model, err := NewOpenAILLM("sk-test", WithOpenAIBaseURL(server.URL))
	require.NoError(t, err)

	_, err = model.GenerateChat(context.Background(), []Message{{Role: "user", Content: "Hi"}})
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestOpenAIMissingKey(t *testing.T) {
	_, err := NewOpenAILLM("")
	assert.Equal(t, ErrAPIKeyMissing, err)
}
