package audit

import (
	"context"

	"github.com/oakline/warden/pkg/contextkeys"
)

// Logger appends audit events to a sink
type Logger interface {
	// Log appends a single event. Implementations must not mutate the
	// event after returning.
	Log(ctx context.Context, event *Event) error

	// Close flushes and releases the sink
	Close() error
}

// WithLogger stores the audit logger on the context for handlers that sit
// below the middleware stack
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return contextkeys.WithAuditLogger(ctx, logger)
}

// FromContext retrieves the audit logger, falling back to a no-op sink
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NopLogger{}
}

// NopLogger discards every event
type NopLogger struct{}

// Log implements Logger
func (NopLogger) Log(context.Context, *Event) error { return nil }

// Close implements Logger
func (NopLogger) Close() error { return nil }
