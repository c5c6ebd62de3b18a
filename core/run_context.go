package core

import (
	"context"

	"github.com/jacksongrove/impossibly/logging"
)

// RunContext carries execution state for one graph run. It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (RunID, SessionID)
//   - The HistoryStore backing every node's private message history
//   - The StepLimiter bounding the walk
//
// Agents read and append history through it, which is what scopes their
// conversation to the run (or to a caller-chosen session).
type RunContext struct {
	Context          context.Context
	RunID, SessionID string
	History          HistoryStore
	Limiter          *StepLimiter

	*loggerAdapter
}

// NewRunContext constructs a RunContext. A nil ctx is replaced by
// context.Background.
func NewRunContext(
	ctx context.Context,
	runID, sessionID string,
	history HistoryStore,
	maxSteps int,
	logger logging.Logger,
) *RunContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RunContext{
		Context:       ctx,
		RunID:         runID,
		SessionID:     sessionID,
		History:       history,
		Limiter:       NewStepLimiter(maxSteps),
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }
