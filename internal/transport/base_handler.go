package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	apperrors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/transport/httpclient"
	"github.com/frahmantamala/hr-portal/pkg/logger"
)

const maxJSONBody = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteAppError maps err onto the portal's error envelope. Collaborator failures keep
// their 401/403/404 status; anything else from a collaborator becomes 502.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, err error) {
	appErr := ToAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "code", appErr.Code, "error", err)
	} else {
		h.Logger.Warn("request rejected", "code", appErr.Code, "error", err)
	}
	status, body := appErr.ToHTTPResponse()
	h.WriteJSON(w, status, body)
}

// DecodeJSON reads a bounded JSON body into dst.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request body", apperrors.ErrCodeValidationFailed).WithCause(err)
	}
	return nil
}

// ToAppError classifies err for the client. Collaborator status codes map onto the
// matching portal error; transport failures become COLLABORATOR_UNAVAILABLE.
func ToAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.IsAppError(err); ok {
		return appErr
	}

	var herr *httpclient.HTTPError
	if errors.As(err, &herr) {
		switch herr.StatusCode {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return apperrors.NewValidationError(herr.Message(), apperrors.ErrCodeCollaboratorRejected)
		case http.StatusUnauthorized:
			return apperrors.NewUnauthorizedError(herr.Message(), apperrors.ErrCodeNotAuthenticated)
		case http.StatusForbidden:
			return apperrors.NewForbiddenError(herr.Message(), apperrors.ErrCodeInsufficientPerms)
		case http.StatusNotFound:
			return apperrors.NewNotFoundError(herr.Message(), apperrors.ErrCodeResourceNotFound)
		case http.StatusConflict:
			return apperrors.NewConflictError(herr.Message(), apperrors.ErrCodeCollaboratorRejected)
		}
		return apperrors.NewExternalError("upstream service failed", apperrors.ErrCodeCollaboratorDown, err)
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		return apperrors.NewExternalError("upstream service unreachable", apperrors.ErrCodeCollaboratorDown, err)
	}

	return apperrors.NewInternalError("internal server error", err)
}
