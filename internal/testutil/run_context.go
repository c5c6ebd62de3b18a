package testutil

import (
	"context"
	"sync"

	"github.com/jacksongrove/impossibly/core"
	"github.com/jacksongrove/impossibly/session"
)

// NewRunContext returns a RunContext over a fresh in-memory history store.
func NewRunContext(sessionID string) *core.RunContext {
	return core.NewRunContext(context.Background(), sessionID, sessionID, session.NewInMemoryStore(), 0, nil)
}

// LogEntry is one call captured by RecordingLogger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// RecordingLogger captures log calls for assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *RecordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

// Messages returns the messages logged at level.
func (l *RecordingLogger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.Entries {
		if e.Level == level {
			out = append(out, e.Msg)
		}
	}
	return out
}
