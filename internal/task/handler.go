package task

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/hr-portal/internal/transport"
)

// ClientFunc resolves the task client of the session behind r.
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

// ListAssigned handles GET /tasks/assigned
func (h *Handler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	tasks, err := client.ListAssigned(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// ListCreated handles GET /tasks/created
func (h *Handler) ListCreated(w http.ResponseWriter, r *http.Request) {
	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	tasks, err := client.ListCreated(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// Get handles GET /tasks/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	t, err := client.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

// Create handles POST /tasks
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateTaskDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if verr := dto.Validate(); verr != nil {
		h.WriteAppError(w, verr)
		return
	}
	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	t, err := client.Create(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, t)
}

// Submit handles POST /tasks/{id}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var dto SubmitTaskDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if verr := dto.Validate(); verr != nil {
		h.WriteAppError(w, verr)
		return
	}
	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	t, err := client.Submit(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

// Review handles POST /tasks/{id}/review
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var dto ReviewTaskDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if verr := dto.Validate(); verr != nil {
		h.WriteAppError(w, verr)
		return
	}
	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	t, err := client.Review(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

// AddComment handles POST /tasks/{id}/comments
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var dto CommentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if verr := dto.Validate(); verr != nil {
		h.WriteAppError(w, verr)
		return
	}
	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	c, err := client.AddComment(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, c)
}
