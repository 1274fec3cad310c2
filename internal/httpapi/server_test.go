package httpapi

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymy770/Clara/internal/config"
	"github.com/mymy770/Clara/internal/fsdriver"
	"github.com/mymy770/Clara/internal/llm"
	"github.com/mymy770/Clara/internal/logging"
	"github.com/mymy770/Clara/internal/memory"
)

func TestMain(m *testing.M) {
	logging.Init(logging.DevNull())
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, model llm.LanguageModel) *httptest.Server {
	t.Helper()

	store, err := memory.NewSQLiteStore(filepath.Join(t.TempDir(), "clara.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fs, err := fsdriver.New(t.TempDir())
	require.NoError(t, err)

	settings := config.Default()
	settings.SystemPrompt = "You are Clara."
	logsDir := t.TempDir()
	settings.Paths.SessionLogs = filepath.Join(logsDir, "sessions")
	settings.Paths.DebugLogs = filepath.Join(logsDir, "debug")

	server := httptest.NewServer(NewServer(settings, model, store, fs).Handler())
	t.Cleanup(server.Close)
	return server
}

func postChat(t *testing.T, server *httptest.Server, body string) (int, chatResponse) {
	t.Helper()
	resp, err := http.Post(server.URL+"/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, llm.NewMockLLM())

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestChatCreatesSession(t *testing.T) {
	server := newTestServer(t, llm.NewMockLLM(llm.WithMockReplies("Hello!")))

	status, parsed := postChat(t, server, `{"message": "hi"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, parsed.SessionID)
	assert.Equal(t, "Hello!", parsed.Reply)
	assert.Nil(t, parsed.Debug)
}

func TestChatReusesSession(t *testing.T) {
	server := newTestServer(t, llm.NewMockLLM(llm.WithMockReplies("first", "second")))

	_, first := postChat(t, server, `{"message": "one"}`)
	_, second := postChat(t, server, `{"session_id": "`+first.SessionID+`", "message": "two"}`)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "second", second.Reply)
}

func TestChatDebugBlock(t *testing.T) {
	reply := "Noted.\n```json\n{\"memory_action\": \"save_note\", \"content\": \"milk\"}\n```"
	server := newTestServer(t, llm.NewMockLLM(llm.WithMockReplies(reply)))

	status, parsed := postChat(t, server, `{"message": "remember milk", "debug": true}`)

	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, parsed.Debug)
	assert.Equal(t, "remember milk", parsed.Debug.UserInput)
	require.Len(t, parsed.Debug.Actions, 1)
	assert.Equal(t, "save_note", parsed.Debug.Actions[0].Action)
}

func TestChatValidation(t *testing.T) {
	server := newTestServer(t, llm.NewMockLLM())

	status, _ := postChat(t, server, `{"message": ""}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSessionListAndReplay(t *testing.T) {
	server := newTestServer(t, llm.NewMockLLM(llm.WithMockReplies("ok")))

	_, chat := postChat(t, server, `{"message": "hello"}`)

	resp, err := http.Get(server.URL + "/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()

	var listing struct {
		Sessions []struct {
			SessionID string `json:"session_id"`
			Turns     int    `json:"turns"`
		} `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.Len(t, listing.Sessions, 1)
	assert.Equal(t, chat.SessionID, listing.Sessions[0].SessionID)
	assert.Equal(t, 1, listing.Sessions[0].Turns)

	replay, err := http.Get(server.URL + "/sessions/" + chat.SessionID)
	require.NoError(t, err)
	defer replay.Body.Close()
	assert.Equal(t, http.StatusOK, replay.StatusCode)

	var detail struct {
		SessionID string `json:"session_id"`
		Turns     []struct {
			UserInput string `json:"user_input"`
			Reply     string `json:"reply"`
		} `json:"turns"`
	}
	require.NoError(t, json.NewDecoder(replay.Body).Decode(&detail))
	require.Len(t, detail.Turns, 1)
	assert.Equal(t, "hello", detail.Turns[0].UserInput)
	assert.Equal(t, "ok", detail.Turns[0].Reply)
}

func TestUnknownSession(t *testing.T) {
	server := newTestServer(t, llm.NewMockLLM())

	resp, err := http.Get(server.URL + "/sessions/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
