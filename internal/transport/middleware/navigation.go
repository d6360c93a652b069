package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/guard"
	"github.com/frahmantamala/hr-portal/internal/route"
	"github.com/frahmantamala/hr-portal/internal/session"
	"github.com/frahmantamala/hr-portal/pkg/logger"
)

// NavigationGuard runs the authorization pipeline for page requests. Allowed pages
// reach next; redirects answer 303; a session still loading answers 503.
func NavigationGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := guard.Decide(r.URL.Path, session.StateOf(r.Context()))
		switch d.Outcome {
		case guard.OutcomeAllow:
			next.ServeHTTP(w, r)
		case guard.OutcomeWait:
			w.Header().Set("Retry-After", "1")
			http.Error(w, "session is loading", http.StatusServiceUnavailable)
		default:
			logger.From(r.Context()).Debug("navigation redirected",
				"path", r.URL.Path, "target", d.Path, "rule", d.Rule)
			http.Redirect(w, r, d.Path, http.StatusSeeOther)
		}
	})
}

type accessDenied struct {
	Error    *apperrors.AppError `json:"error"`
	Redirect string              `json:"redirect,omitempty"`
}

// RequireAccess protects an API group with a level and role requirement. Denials are
// JSON and carry the page the SPA should navigate to.
func RequireAccess(req guard.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := guard.Gate(req, session.StateOf(r.Context()))
			switch {
			case d.Allowed():
				next.ServeHTTP(w, r)
			case d.Outcome == guard.OutcomeWait:
				w.Header().Set("Retry-After", "1")
				writeDenied(w, http.StatusServiceUnavailable, apperrors.NewExternalError("Session is loading", apperrors.ErrCodeSessionLoading, nil), "")
			case d.Path == route.Login:
				writeDenied(w, http.StatusUnauthorized, apperrors.ErrNotAuthenticated, route.Login)
			default:
				caller := apperrors.CallerFromContext(r.Context())
				logger.From(r.Context()).Warn("access denied",
					"path", r.URL.Path,
					"session_id", caller.SessionID,
					"user_id", caller.UserID,
					"reason", d.Reason)
				writeDenied(w, http.StatusForbidden, apperrors.ErrInsufficientAccess, d.Path)
			}
		})
	}
}

func writeDenied(w http.ResponseWriter, status int, err *apperrors.AppError, redirect string) {
	writeJSON(w, status, accessDenied{Error: err, Redirect: redirect})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
