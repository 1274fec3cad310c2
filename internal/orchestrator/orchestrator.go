// Package orchestrator sequences one conversation turn: prompt assembly,
// the optional memory pre-fetch, the model call, both dispatch passes and
// the history update. One Orchestrator serves one session; an internal mutex
// still serializes turns so a shared instance degrades safely instead of
// interleaving history appends.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mymy770/Clara/internal/dispatch"
	"github.com/mymy770/Clara/internal/llm"
	"github.com/mymy770/Clara/internal/logging"
	"github.com/mymy770/Clara/internal/memory"
	"github.com/mymy770/Clara/internal/tracing"
)

// DefaultMaxHistory bounds the rolling window of conversation messages kept
// between turns. The system prompt sits outside the window and is
// re-prepended on every turn.
const DefaultMaxHistory = 20

// DefaultModelTimeout bounds the model call, the only unbounded-latency
// dependency of a turn.
const DefaultModelTimeout = 60 * time.Second

// Orchestrator drives conversation turns for a single session.
type Orchestrator struct {
	sessionID    string
	model        llm.LanguageModel
	dispatcher   *dispatch.Dispatcher
	store        memory.Store
	tracer       tracing.Tracer
	logger       *logging.Logger
	systemPrompt string
	maxHistory   int
	modelTimeout time.Duration
	prefetch     bool

	mu      sync.Mutex
	history []llm.Message
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSystemPrompt overrides the system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) {
		o.systemPrompt = prompt
	}
}

// WithMaxHistory bounds the rolling history window.
func WithMaxHistory(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxHistory = n
		}
	}
}

// WithModelTimeout bounds the model call.
func WithModelTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.modelTimeout = d
		}
	}
}

// WithTracer installs the observability collaborator.
func WithTracer(t tracing.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// WithoutPrefetch disables the memory pre-fetch guard.
func WithoutPrefetch() Option {
	return func(o *Orchestrator) {
		o.prefetch = false
	}
}

// New creates an Orchestrator for one session. The dispatcher and store are
// injected explicitly; nothing is resolved through global state.
func New(sessionID string, model llm.LanguageModel, dispatcher *dispatch.Dispatcher, store memory.Store, options ...Option) *Orchestrator {
	o := &Orchestrator{
		sessionID:    sessionID,
		model:        model,
		dispatcher:   dispatcher,
		store:        store,
		tracer:       tracing.NewNoopTracer(),
		logger:       logging.Get(),
		maxHistory:   DefaultMaxHistory,
		modelTimeout: DefaultModelTimeout,
		prefetch:     true,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// SessionID returns the session this orchestrator serves.
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}

// History returns a copy of the rolling conversation window, oldest first.
// The system prompt is not part of it.
func (o *Orchestrator) History() []llm.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]llm.Message(nil), o.history...)
}

// HandleTurn runs one full user turn and returns the composed reply plus its
// trace. It never returns an error: any failure inside the turn produces an
// apology reply carrying the error message, and the trace records whatever
// partial state was built.
func (o *Orchestrator) HandleTurn(ctx context.Context, userText string) (string, tracing.TurnTrace) {
	o.mu.Lock()
	defer o.mu.Unlock()

	trace := tracing.TurnTrace{
		SessionID: o.sessionID,
		Timestamp: time.Now(),
		UserInput: userText,
	}

	o.history = append(o.history, llm.Message{Role: "user", Content: userText})

	messages := o.buildPrompt(ctx, userText)
	trace.PromptMessages = messages

	resp, err := o.callModel(ctx, messages)
	if err != nil {
		reply := fmt.Sprintf("I'm sorry, something went wrong while handling that: %v", err)
		trace.Error = err.Error()
		trace.Reply = reply
		o.logger.Error("Turn failed", "session", o.sessionID, "error", err)
		o.finishTurn(reply, trace)
		return reply, trace
	}
	trace.ModelReply = resp.Text
	trace.Usage = resp.Usage

	result := o.dispatcher.Run(ctx, resp.Text)
	trace.Actions = result.Actions
	trace.Reply = result.Reply

	o.finishTurn(result.Reply, trace)
	return result.Reply, trace
}

// buildPrompt assembles system prompt, optional pre-fetched memory and the
// rolling history.
func (o *Orchestrator) buildPrompt(ctx context.Context, userText string) []llm.Message {
	messages := make([]llm.Message, 0, len(o.history)+2)
	if o.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: o.systemPrompt})
	}
	if o.prefetch {
		if snapshot := o.prefetchMemory(ctx, userText); snapshot != "" {
			messages = append(messages, llm.Message{Role: "system", Content: snapshot})
		}
	}
	return append(messages, o.history...)
}

func (o *Orchestrator) callModel(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, o.modelTimeout)
	defer cancel()
	return o.model.GenerateChat(ctx, messages)
}

// finishTurn appends the assistant reply, truncates the window and records
// the trace. Caller holds the mutex.
func (o *Orchestrator) finishTurn(reply string, trace tracing.TurnTrace) {
	o.history = append(o.history, llm.Message{Role: "assistant", Content: reply})
	if len(o.history) > o.maxHistory {
		o.history = o.history[len(o.history)-o.maxHistory:]
	}
	if err := o.tracer.RecordTurn(trace); err != nil {
		o.logger.Error("Trace recording failed", "session", o.sessionID, "error", err)
	}
}
