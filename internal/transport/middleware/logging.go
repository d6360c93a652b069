package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
)

const (
	maxLoggedBody = 4 << 10
	redacted      = "[FILTERED]"
)

// Substrings that mark a header, query parameter or JSON key as carrying a secret.
var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"key",
	"session",
	"credential",
	"auth",
	"cookie",
}

// Health and metrics endpoints are logged at debug so they do not drown real traffic.
var quietPaths = map[string]bool{
	"/api/v1/health": true,
	"/api/v1/ping":   true,
	"/metrics":       true,
}

func sensitive(name string) bool {
	name = strings.ToLower(name)
	for _, f := range sensitiveFields {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

// LoggingMiddleware writes one line per request. Headers and bodies are attached only
// when the logger runs at debug, with credentials redacted. Websocket upgrades pass
// through untouched so the connection can be hijacked.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())

			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				logger.Info("websocket upgrade", "request_id", reqID, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			verbose := logger.Enabled(r.Context(), slog.LevelDebug)
			attrs := []any{
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", redactQuery(r.URL.RawQuery),
				"remote_addr", r.RemoteAddr,
			}
			if verbose {
				attrs = append(attrs,
					"user_agent", r.UserAgent(),
					"headers", redactHeaders(r.Header),
					"body", redactBody(peekBody(r)),
				)
			}

			rec := &responseWriter{ResponseWriter: w, capture: verbose}
			if verbose {
				rec.body = &bytes.Buffer{}
			}
			start := time.Now()
			next.ServeHTTP(rec, r)

			status := rec.status()
			attrs = append(attrs,
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.size,
			)
			if verbose {
				attrs = append(attrs, "response_body", redactBody(rec.body.Bytes()))
			}

			logger.Log(r.Context(), levelFor(r.URL.Path, status), "request handled", attrs...)
		})
	}
}

func levelFor(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case quietPaths[path]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// peekBody reads a JSON or form body and puts it back for the handler. Uploads are skipped.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(b), r.Body), r.Body}
	return b
}

type responseWriter struct {
	http.ResponseWriter
	code    int
	size    int
	capture bool
	body    *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.code == 0 {
		rw.code = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.capture {
		if room := maxLoggedBody - rw.body.Len(); room > 0 {
			rw.body.Write(b[:min(room, len(b))])
		}
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) status() int {
	if rw.code == 0 {
		return http.StatusOK
	}
	return rw.code
}

// redactQuery hides values such as the email verification token.
func redactQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return redacted
	}
	for k := range values {
		if sensitive(k) {
			values[k] = []string{redacted}
		}
	}
	return values.Encode()
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if sensitive(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		if sensitive(string(body)) {
			return "[FILTERED - Contains sensitive data]"
		}
		return string(body)
	}

	out, err := json.Marshal(redactJSON(doc))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return string(out)
}

func redactJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if sensitive(key) {
				out[key] = redacted
				continue
			}
			out[key] = redactJSON(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = redactJSON(item)
		}
		return out
	default:
		return v
	}
}
