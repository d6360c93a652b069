package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/session"
	"github.com/frahmantamala/hr-portal/pkg/logger"
)

// SessionResolver finds the session store behind a request.
type SessionResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*session.Store, error)
}

// SessionContext attaches the caller's session store to the request context and
// refreshes its credential when it is about to expire. Requests without a session
// continue as guests.
func SessionContext(resolver SessionResolver, lg *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			store, err := resolver.Resolve(ctx, r)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					lg.Warn("session restore failed, continuing as guest", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			if err := store.EnsureFresh(ctx); err != nil {
				lg.Warn("proactive token refresh failed", "session_id", store.ID(), "error", err)
			}

			ctx = session.WithStore(ctx, store)
			var userID string
			if snap := store.State(); snap.Identity != nil {
				userID = snap.Identity.ID
				ctx = apperrors.ContextWithUserID(ctx, userID)
			}
			ctx = logger.WithSession(ctx, store.ID(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
