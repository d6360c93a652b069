package middleware

import (
	"net/http"

	apperrors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/route"
	"github.com/frahmantamala/hr-portal/internal/session"
	"github.com/frahmantamala/hr-portal/pkg/logger"
)

var checker = access.NewPermissionChecker()

// RequirePermissions lets the request through when the session holds any of permissions.
func RequirePermissions(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, ok := session.FromContext(r.Context())
			if !ok {
				writeDenied(w, http.StatusUnauthorized, apperrors.ErrNotAuthenticated, route.Login)
				return
			}
			snap := store.State()
			if !snap.Authenticated {
				writeDenied(w, http.StatusUnauthorized, apperrors.ErrNotAuthenticated, route.Login)
				return
			}

			if !checker.HasAnyPermission(snap.Permissions, permissions) {
				logger.From(r.Context()).Warn("access denied: missing permissions",
					"user_id", apperrors.UserIDFromContext(r.Context()),
					"required_permissions", permissions,
					"user_permissions", snap.Permissions)
				writeDenied(w, http.StatusForbidden, apperrors.ErrInsufficientPerms, route.DefaultDashboardRoute(snap.Level))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
