package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/frahmantamala/hr-portal/internal/route"
	"github.com/frahmantamala/hr-portal/internal/session"
)

// ErrorBoundary is the body written when a handler panics. Actions are the recovery
// options the SPA offers the user.
type ErrorBoundary struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Actions []string `json:"actions"`
	Home    string   `json:"home"`
	Stack   string   `json:"stack,omitempty"`
}

// RecoveryMiddleware turns a panic into an error boundary response. Outside
// production the panic value and stack are included.
func RecoveryMiddleware(logger *slog.Logger, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				stack := string(debug.Stack())
				logger.Error("panic recovered",
					"error", rec,
					"method", r.Method,
					"url", r.URL.String(),
					"stack", stack)

				body := ErrorBoundary{
					Error:   "Internal server error",
					Message: "Something went wrong. Try again, go back home or reload the page.",
					Actions: []string{"retry", "home", "reload"},
					Home:    homeFor(r),
				}
				if env != "production" {
					body.Message = fmt.Sprintf("panic: %v", rec)
					body.Stack = stack
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(body)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func homeFor(r *http.Request) string {
	state := session.StateOf(r.Context())
	if !state.Authenticated {
		return route.Login
	}
	return route.DefaultDashboardRoute(state.Level)
}
