package internal

import (
	"context"
	"time"
)

// Caller identifies who a request is acting for. UserID stays empty until the
// session has a profile.
type Caller struct {
	SessionID string
	UserID    string
}

// Anonymous reports whether no session is attached.
func (c Caller) Anonymous() bool {
	return c.SessionID == ""
}

type callerKey struct{}

func CallerFromContext(ctx context.Context) Caller {
	if ctx == nil {
		return Caller{}
	}
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}

func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	c := CallerFromContext(ctx)
	c.SessionID = sessionID
	return context.WithValue(ctx, callerKey{}, c)
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	c := CallerFromContext(ctx)
	c.UserID = userID
	return context.WithValue(ctx, callerKey{}, c)
}

func UserIDFromContext(ctx context.Context) string {
	return CallerFromContext(ctx).UserID
}

// WithTimeout bounds ctx, using 5 seconds when duration is not positive.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
