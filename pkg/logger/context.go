package logger

import (
	"context"
	"log/slog"
)

type contextLogger struct{}

// With stores the context logger extended with fields.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, contextLogger{}, From(ctx).With(fields...))
}

// WithSession tags the context logger with the session and, once known, the user.
func WithSession(ctx context.Context, sessionID, userID string) context.Context {
	if userID == "" {
		return With(ctx, "session_id", sessionID)
	}
	return With(ctx, "session_id", sessionID, "user_id", userID)
}

// From returns the request scoped logger, or the process logger when none was stored.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextLogger{}).(*slog.Logger); ok {
			return l
		}
	}
	return LoggerWrapper()
}
