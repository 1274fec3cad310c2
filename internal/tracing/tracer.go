// Package tracing persists per-turn observability data. The core produces a
// TurnTrace per conversation turn and hands it to a Tracer; the core itself
// never writes transcripts or debug files to disk.
package tracing

import (
	"time"

	"github.com/mymy770/Clara/internal/dispatch"
	"github.com/mymy770/Clara/internal/llm"
)

// TurnTrace captures everything observable about one conversation turn.
type TurnTrace struct {
	SessionID      string                  `json:"session_id"`
	Timestamp      time.Time               `json:"timestamp"`
	UserInput      string                  `json:"user_input"`
	PromptMessages []llm.Message           `json:"prompt_messages"`
	ModelReply     string                  `json:"llm_response"`
	Usage          llm.Usage               `json:"usage"`
	Error          string                  `json:"error,omitempty"`
	Actions        []dispatch.ActionRecord `json:"actions,omitempty"`
	Reply          string                  `json:"reply"`
}

// Tracer records turn traces. Implementations must tolerate concurrent calls
// from different sessions; a single session's turns arrive sequentially.
type Tracer interface {
	RecordTurn(trace TurnTrace) error
	Close() error
}

// NoopTracer discards everything.
type NoopTracer struct{}

// NewNoopTracer creates a tracer that records nothing.
func NewNoopTracer() *NoopTracer {
	return &NoopTracer{}
}

// RecordTurn discards the trace.
func (t *NoopTracer) RecordTurn(TurnTrace) error { return nil }

// Close does nothing.
func (t *NoopTracer) Close() error { return nil }
