package department

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/hr-portal/internal/transport"
)

// ClientFunc resolves the department client of the session behind r.
type ClientFunc func(r *http.Request) (*Client, error)

type Handler struct {
	*transport.BaseHandler
	clientFor ClientFunc
}

func NewHandler(clientFor ClientFunc, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		clientFor:   clientFor,
	}
}

// List handles GET /departments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	departments, err := client.List(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"departments": departments})
}

// Get handles GET /departments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	d, err := client.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}
