package audit

import (
	"context"
	"log/slog"
)

// Event represents an audit entry for one execute call.
type Event struct {
	// Type describes the event kind.
	Type string
	// Node is the node the request went to.
	Node uint64
	// Kind is the failure kind; empty on success.
	Kind string
	// Retry is the suggested retry action.
	Retry string
	// Reason provides additional context.
	Reason string
}

// Logger records audit events.
type Logger interface {
	// Record stores an audit event.
	Record(ctx context.Context, event Event)
}

// StdLogger writes audit events to slog.
type StdLogger struct {
	logger *slog.Logger
}

// New returns a StdLogger.
func New(logger *slog.Logger) *StdLogger {
	return &StdLogger{logger: logger}
}

// Record logs an audit event.
func (l *StdLogger) Record(_ context.Context, event Event) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Info("audit",
		"type", event.Type,
		"node", event.Node,
		"kind", event.Kind,
		"retry", event.Retry,
		"reason", event.Reason,
	)
}
