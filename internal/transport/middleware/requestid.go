package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/hr-portal/pkg/logger"
)

// RequestID assigns chi's request id, echoes it as X-Request-ID and adds it to the
// context logger.
func RequestID(next http.Handler) http.Handler {
	return chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := chimw.GetReqID(r.Context())
		w.Header().Set("X-Request-ID", reqID)

		ctx := logger.With(r.Context(), "request_id", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}))
}
