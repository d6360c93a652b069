package document

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/transport"
)

// ClientFunc resolves the document client of the session behind r.
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

// List handles GET /documents?status=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	docs, err := client.List(r.Context(), Status(r.URL.Query().Get("status")))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

// Upload handles POST /documents as multipart form with fields "type" and "file".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.WriteAppError(w, errors.NewValidationError("invalid upload form", errors.ErrCodeUnsupportedUploadField).WithCause(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteAppError(w, errors.NewValidationFieldError("file", "file is required", errors.ErrCodeValidationFailed))
		return
	}
	defer file.Close()

	dto := UploadDTO{Type: Type(r.FormValue("type")), FileName: header.Filename, Size: header.Size}
	if verr := dto.Validate(); verr != nil {
		h.WriteAppError(w, verr)
		return
	}

	client, err := h.clientFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	doc, err := client.Upload(r.Context(), dto, file)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.Logger.Info("document uploaded", "document_id", doc.ID, "type", doc.Type)
	h.WriteJSON(w, http.StatusCreated, doc)
}

// Review handles POST /documents/{id}/review
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var dto ReviewDocumentDTO
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
	doc, err := client.Review(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, doc)
}
