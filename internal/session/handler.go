package session

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/auth"
	"github.com/frahmantamala/hr-portal/internal/credential"
	"github.com/frahmantamala/hr-portal/internal/employee"
	"github.com/frahmantamala/hr-portal/internal/route"
	"github.com/frahmantamala/hr-portal/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	manager *Manager
}

func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		manager:     manager,
	}
}

// Response is the session view handed to the browser.
type Response struct {
	Authenticated      bool                      `json:"authenticated"`
	Identity           *access.Identity          `json:"user,omitempty"`
	DisplayName        string                    `json:"display_name,omitempty"`
	Level              access.AccessLevel        `json:"access_level"`
	VerificationStatus access.VerificationStatus `json:"verification_status"`
	ProfileStatus      access.ProfileStatus      `json:"profile_status"`
	Roles              []access.RoleCode         `json:"roles"`
	Permissions        []string                  `json:"permissions"`
	Profile            *access.EmployeeProfile   `json:"profile,omitempty"`
	DefaultDashboard   string                    `json:"default_dashboard,omitempty"`
	Degraded           bool                      `json:"degraded,omitempty"`
}

func NewResponse(snap Snapshot) Response {
	resp := Response{
		Authenticated:      snap.Authenticated,
		Identity:           snap.Identity,
		Level:              snap.Level,
		VerificationStatus: snap.VerificationStatus,
		ProfileStatus:      snap.ProfileStatus,
		Roles:              access.ActiveRoles(snap.Roles),
		Permissions:        snap.Permissions,
		Profile:            snap.Profile,
		Degraded:           snap.Degraded,
	}
	if resp.Roles == nil {
		resp.Roles = []access.RoleCode{}
	}
	if resp.Permissions == nil {
		resp.Permissions = []string{}
	}
	if snap.Identity != nil {
		resp.DisplayName = snap.Identity.FullName()
		if resp.DisplayName == "" {
			resp.DisplayName = snap.Identity.Email
		}
	}
	if snap.Authenticated {
		resp.DefaultDashboard = route.DefaultDashboardRoute(snap.Level)
	}
	return resp
}

// toAppError maps session failures onto the portal's error codes.
func toAppError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.ErrInvalidCredentials
	case errors.Is(err, ErrSessionExpired):
		return apperrors.ErrSessionExpired
	case errors.Is(err, ErrNotAuthenticated):
		return apperrors.ErrNotAuthenticated
	case errors.Is(err, credential.ErrPropagation):
		return apperrors.ErrCredentialPropagation
	case errors.Is(err, auth.ErrInvalidToken):
		return apperrors.NewValidationError("Invalid or expired token", apperrors.ErrCodeValidationFailed)
	case errors.Is(err, ErrSuperseded):
		return apperrors.NewConflictError("Session was signed out during the request", apperrors.ErrCodeSessionExpired)
	}
	return err
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto auth.LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	store, err := h.manager.Open(r.Context(), w, r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	snap, err := store.Login(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusOK, NewResponse(snap))
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto auth.RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	store, err := h.manager.Open(r.Context(), w, r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	msg, err := store.Register(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusCreated, auth.MessageResponse{Message: msg})
}

// VerifyEmail handles GET /auth/verify-email?token= and POST /auth/verify-email
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	dto := auth.VerifyEmailDTO{Token: r.URL.Query().Get("token")}
	if r.Method == http.MethodPost {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.WriteAppError(w, err)
			return
		}
	}

	store, err := h.manager.Open(r.Context(), w, r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	msg, err := store.VerifyEmail(r.Context(), dto.Token)
	if err != nil {
		h.WriteAppError(w, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusOK, auth.MessageResponse{Message: msg})
}

// Logout handles POST /auth/logout. It always succeeds for the browser.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	store, ok := FromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.manager.Close(r.Context(), w, store); err != nil {
		h.Logger.Warn("logout finished with errors", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	store, err := Authenticated(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	if err := store.RefreshToken(r.Context()); err != nil {
		h.WriteAppError(w, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusOK, NewResponse(store.State()))
}

// Current handles GET /session. Guests get an unauthenticated view, never an error.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	store, ok := FromContext(r.Context())
	if !ok {
		h.WriteJSON(w, http.StatusOK, NewResponse(guestSnapshot()))
		return
	}
	h.WriteJSON(w, http.StatusOK, NewResponse(store.State()))
}

// RefreshProfile handles POST /session/profile/refresh
func (h *Handler) RefreshProfile(w http.ResponseWriter, r *http.Request) {
	store, err := Authenticated(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	snap, err := store.RefreshProfile(r.Context())
	if err != nil {
		h.WriteAppError(w, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusOK, NewResponse(snap))
}

// UpdateProfile handles PUT /profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	store, err := Authenticated(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto employee.ProfileUpdateDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	snap, err := store.UpdateProfile(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusOK, NewResponse(snap))
}
