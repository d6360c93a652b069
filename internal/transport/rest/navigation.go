package rest

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	apperrors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/guard"
	"github.com/frahmantamala/hr-portal/internal/route"
	"github.com/frahmantamala/hr-portal/internal/session"
	"github.com/frahmantamala/hr-portal/internal/transport"
)

type NavigationHandler struct {
	*transport.BaseHandler
	spaDir string
}

// NewNavigationHandler serves navigation decisions and page requests. When spaDir
// holds an index.html it is served for every allowed page; otherwise the page
// context is returned as JSON.
func NewNavigationHandler(spaDir string, logger *slog.Logger) *NavigationHandler {
	return &NavigationHandler{BaseHandler: transport.NewBaseHandler(logger), spaDir: spaDir}
}

type routeView struct {
	Path              string              `json:"path"`
	Title             string              `json:"title"`
	RequiredLevel     *access.AccessLevel `json:"required_level,omitempty"`
	RequiredRoles     []access.RoleCode   `json:"required_roles,omitempty"`
	Public            bool                `json:"public"`
	GuestOnly         bool                `json:"guest_only,omitempty"`
	VerificationGated bool                `json:"verification_gated,omitempty"`
}

// Decide handles GET /navigation/decide?path=
func (h *NavigationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.WriteAppError(w, apperrors.NewValidationFieldError("path", "path is required", apperrors.ErrCodeValidationFailed))
		return
	}
	h.WriteJSON(w, http.StatusOK, guard.Decide(path, session.StateOf(r.Context())))
}

// Routes handles GET /navigation/routes
func (h *NavigationHandler) Routes(w http.ResponseWriter, r *http.Request) {
	entries := route.Entries()
	views := make([]routeView, 0, len(entries))
	for _, e := range entries {
		views = append(views, routeView{
			Path:              e.Path,
			Title:             e.Title,
			RequiredLevel:     e.RequiredLevel,
			RequiredRoles:     e.RequiredRoles,
			Public:            e.Public,
			GuestOnly:         e.GuestOnly,
			VerificationGated: e.VerificationGated,
		})
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"routes": views})
}

type pageContext struct {
	Path    string           `json:"path"`
	Title   string           `json:"title,omitempty"`
	Session session.Response `json:"session"`
}

// Page serves an allowed page. It runs behind the navigation guard.
func (h *NavigationHandler) Page(w http.ResponseWriter, r *http.Request) {
	if h.spaDir != "" {
		index := filepath.Join(h.spaDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			http.ServeFile(w, r, index)
			return
		}
	}

	ctx := pageContext{Path: route.Clean(r.URL.Path)}
	if e, ok := route.Lookup(r.URL.Path); ok {
		ctx.Title = e.Title
	}
	if store, ok := session.FromContext(r.Context()); ok {
		ctx.Session = session.NewResponse(store.State())
	} else {
		ctx.Session = session.NewResponse(session.Snapshot{State: guard.Guest()})
	}
	h.WriteJSON(w, http.StatusOK, ctx)
}
