// Package dispatch turns directives embedded in model replies into store
// calls. Each turn runs two independent passes over the reply text, memory
// first and filesystem second, and composes the visible reply from the
// cleaned text plus a result line. Successes are prefixed "✓ ", failures
// "⚠ ", so callers can discriminate outcome from the string alone.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymy770/Clara/internal/directive"
	"github.com/mymy770/Clara/internal/fsdriver"
	"github.com/mymy770/Clara/internal/logging"
	"github.com/mymy770/Clara/internal/memory"
)

// Result string prefixes.
const (
	SuccessPrefix = "✓ "
	FailurePrefix = "⚠ "
)

// Outcome classifies one attempted action.
type Outcome string

const (
	// OutcomeSuccess means the action ran and did or found something.
	OutcomeSuccess Outcome = "success"
	// OutcomeEmpty means the action ran but had nothing to report.
	OutcomeEmpty Outcome = "empty"
	// OutcomeError means the action was attempted but failed.
	OutcomeError Outcome = "error"
)

// ActionRecord describes one attempted action for the tracing collaborator.
// It is the only way a caller can tell which action fired versus a turn that
// carried no directive at all.
type ActionRecord struct {
	Action  string  `json:"action"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

// Result is the composed output of both dispatch passes over one reply.
type Result struct {
	Reply   string
	Actions []ActionRecord
}

// Dispatcher executes memory and filesystem directives against explicitly
// injected stores. It keeps no state between calls and is safe for
// concurrent use as long as the stores are.
type Dispatcher struct {
	store  memory.Store
	fs     *fsdriver.Driver
	logger *logging.Logger
}

// New creates a Dispatcher over the given stores.
func New(store memory.Store, fs *fsdriver.Driver) *Dispatcher {
	return &Dispatcher{store: store, fs: fs, logger: logging.Get()}
}

// Run executes both passes against the raw model text.
//
// Pass 1 scans for a memory directive and executes it. Pass 2 re-scans the
// cleaned text from pass 1 for a filesystem directive. When both passes
// produce a result the filesystem pass wins the composed reply; this
// precedence is an arbitrary tie-break kept for compatibility, not a
// correctness rule. When neither pass fires, the model text is returned
// verbatim.
func (disp *Dispatcher) Run(ctx context.Context, modelText string) Result {
	var records []ActionRecord

	memCleaned, memMsg := disp.memoryPass(ctx, modelText, &records)
	fsCleaned, fsMsg := disp.filesystemPass(ctx, memCleaned, &records)

	var reply string
	switch {
	case fsMsg != "":
		reply = joinReply(fsCleaned, fsMsg)
	case memMsg != "":
		reply = joinReply(memCleaned, memMsg)
	default:
		reply = modelText
	}
	return Result{Reply: reply, Actions: records}
}

// memoryPass extracts and executes at most one memory directive. An
// unrecognized action name is treated as no directive at all, leaving the
// text untouched.
func (disp *Dispatcher) memoryPass(ctx context.Context, text string, records *[]ActionRecord) (string, string) {
	cleaned, d := directive.Extract(text, directive.KeyMemoryAction)
	if d == nil {
		return text, ""
	}
	action := d.String(directive.KeyMemoryAction)
	handler, ok := memoryHandlers[action]
	if !ok {
		disp.logger.Warn("Unrecognized memory action", "action", action)
		return text, ""
	}

	msg, outcome := handler(disp, ctx, d)
	disp.logger.Info("Memory action dispatched", "action", action, "outcome", string(outcome))
	*records = append(*records, ActionRecord{Action: action, Outcome: outcome, Detail: msg})
	return cleaned, msg
}

// filesystemPass extracts and executes at most one filesystem directive from
// the already-cleaned text.
func (disp *Dispatcher) filesystemPass(ctx context.Context, text string, records *[]ActionRecord) (string, string) {
	cleaned, d := directive.Extract(text, directive.KeyIntent)
	if d == nil || d.String(directive.KeyIntent) != "filesystem" {
		return text, ""
	}
	action := d.String("action")
	params := directive.Directive(d.Map("params"))
	if params == nil {
		params = directive.Directive{}
	}

	handler, ok := fsHandlers[action]
	if !ok {
		msg := fmt.Sprintf("%sUnknown filesystem action: %s", FailurePrefix, action)
		*records = append(*records, ActionRecord{Action: action, Outcome: OutcomeError, Detail: msg})
		return cleaned, msg
	}

	msg, outcome := handler(disp, ctx, params)
	disp.logger.Info("Filesystem action dispatched", "action", action, "outcome", string(outcome))
	*records = append(*records, ActionRecord{Action: action, Outcome: outcome, Detail: msg})
	return cleaned, msg
}

func joinReply(cleaned, msg string) string {
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return msg
	}
	return cleaned + "\n\n" + msg
}

func successf(format string, args ...any) (string, Outcome) {
	return SuccessPrefix + fmt.Sprintf(format, args...), OutcomeSuccess
}

func emptyf(format string, args ...any) (string, Outcome) {
	return SuccessPrefix + fmt.Sprintf(format, args...), OutcomeEmpty
}

func failf(format string, args ...any) (string, Outcome) {
	return FailurePrefix + fmt.Sprintf(format, args...), OutcomeError
}
