package tracing

import "sync"

// MemoryTracer stores traces in memory for tests.
type MemoryTracer struct {
	mu    sync.Mutex
	turns []TurnTrace
}

// NewMemoryTracer creates a new MemoryTracer.
func NewMemoryTracer() *MemoryTracer {
	return &MemoryTracer{}
}

// RecordTurn stores the trace.
func (t *MemoryTracer) RecordTurn(trace TurnTrace) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, trace)
	return nil
}

// Turns returns a copy of the recorded turns, oldest first.
func (t *MemoryTracer) Turns() []TurnTrace {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TurnTrace(nil), t.turns...)
}

// Clear drops all recorded turns.
func (t *MemoryTracer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = nil
}

// Close does nothing.
func (t *MemoryTracer) Close() error { return nil }
