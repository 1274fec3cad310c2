package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockDefaultResponse(t *testing.T) {
	mock := NewMockLLM()

	resp, err := mock.GenerateResponse(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "Thank you for asking me: ping", resp.Text)
}

func TestMockScriptedReplies(t *testing.T) {
	mock := NewMockLLM(WithMockReplies("first", "second"))
	ctx := context.Background()

	resp, _ := mock.GenerateResponse(ctx, "a")
	assert.Equal(t, "first", resp.Text)

	resp, _ = mock.GenerateResponse(ctx, "b")
	assert.Equal(t, "second", resp.Text)

	// Last scripted reply repeats.
	resp, _ = mock.GenerateResponse(ctx, "c")
	assert.Equal(t, "second", resp.Text)
}

func TestMockRecordsHistory(t *testing.T) {
	mock := NewMockLLM()
	ctx := context.Background()

	_, err := mock.GenerateChat(ctx, []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "question"},
	})
	require.NoError(t, err)

	history := mock.History()
	require.Len(t, history, 1)
	assert.Len(t, history[0].Messages, 2)
	assert.Equal(t, "Thank you for asking me: question", history[0].Response)
}

func TestEchoLLM(t *testing.T) {
	echo := NewEchoLLM(0)

	resp, err := echo.GenerateChat(context.Background(), []Message{
		{Role: "user", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ECHO: You said: hello", resp.Text)
}

func TestExceptionLLM(t *testing.T) {
	exc := NewExceptionLLM(0)

	_, err := exc.GenerateChat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	model, err := NewLLM(Config{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockLLM{}, model)

	model, err = NewLLM(Config{Provider: "echo"})
	require.NoError(t, err)
	assert.IsType(t, &EchoLLM{}, model)

	_, err = NewLLM(Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
