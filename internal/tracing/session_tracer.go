package tracing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/mymy770/Clara/internal/logging"
)

// Default log directories, relative to the working directory.
const (
	DefaultSessionsDir = "logs/sessions"
	DefaultDebugDir    = "logs/debug"
)

// SessionTracer writes one human-readable transcript per session under the
// sessions directory and one full JSON debug file under the debug directory.
// The transcript is append-only; the debug file is rewritten whole on every
// turn so it always parses.
type SessionTracer struct {
	sessionID      string
	transcriptPath string
	debugPath      string
	logger         *logging.Logger

	mu    sync.Mutex
	turns []TurnTrace
}

// SessionTracerOption configures a SessionTracer.
type SessionTracerOption func(*SessionTracer)

// WithSessionsDir overrides the transcript directory.
func WithSessionsDir(dir string) SessionTracerOption {
	return func(t *SessionTracer) {
		t.transcriptPath = filepath.Join(dir, t.sessionID+".txt")
	}
}

// WithDebugDir overrides the debug directory.
func WithDebugDir(dir string) SessionTracerOption {
	return func(t *SessionTracer) {
		t.debugPath = filepath.Join(dir, t.sessionID+".json")
	}
}

// NewSessionTracer creates the tracer for one session and writes the
// transcript header.
func NewSessionTracer(sessionID string, options ...SessionTracerOption) (*SessionTracer, error) {
	t := &SessionTracer{
		sessionID:      sessionID,
		transcriptPath: filepath.Join(DefaultSessionsDir, sessionID+".txt"),
		debugPath:      filepath.Join(DefaultDebugDir, sessionID+".json"),
		logger:         logging.Get(),
	}
	for _, option := range options {
		option(t)
	}

	for _, path := range []string{t.transcriptPath, t.debugPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	header := fmt.Sprintf("=== Clara Session %s ===\nDate: %s\n%s\n\n",
		sessionID,
		time.Now().Format("2006-01-02 15:04:05"),
		strings.Repeat("=", 50))
	if err := os.WriteFile(t.transcriptPath, []byte(header), 0o644); err != nil {
		return nil, fmt.Errorf("write transcript header: %w", err)
	}

	return t, nil
}

// RecordTurn appends the turn to the transcript and rewrites the debug file.
func (t *SessionTracer) RecordTurn(trace TurnTrace) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.turns = append(t.turns, trace)

	if err := t.appendTranscript(trace); err != nil {
		return err
	}
	return t.writeDebug()
}

func (t *SessionTracer) appendTranscript(trace TurnTrace) error {
	f, err := os.OpenFile(t.transcriptPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	stamp := trace.Timestamp.Format("15:04:05")
	if _, err := fmt.Fprintf(f, "[%s] User:\n%s\n\n[%s] Clara:\n%s\n\n",
		stamp, trace.UserInput, stamp, trace.Reply); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

func (t *SessionTracer) writeDebug() error {
	payload := struct {
		SessionID    string      `json:"session_id"`
		Interactions []TurnTrace `json:"interactions"`
	}{
		SessionID:    t.sessionID,
		Interactions: t.turns,
	}

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal debug trace: %w", err)
	}
	if err := os.WriteFile(t.debugPath, raw, 0o644); err != nil {
		return fmt.Errorf("write debug trace: %w", err)
	}
	return nil
}

// Turns returns a copy of the recorded turns, oldest first.
func (t *SessionTracer) Turns() []TurnTrace {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TurnTrace(nil), t.turns...)
}

// Close is a no-op; both files are flushed on every turn.
func (t *SessionTracer) Close() error {
	t.logger.Debug("Session tracer closed", "session", t.sessionID, "turns", len(t.turns))
	return nil
}
