package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-portal/internal/transport/middleware"
)

var _ = Describe("LoggingMiddleware", func() {
	var buf *bytes.Buffer

	newLogger := func(level slog.Level) *slog.Logger {
		return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))
	}

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("redacts credentials from debug logs and leaves the body readable", func() {
		var seen string
		echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			seen = string(b)
			_, _ = w.Write([]byte(`{"access_token":"tok-abc-123","user":{"email":"jane@example.com"}}`))
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"email":"jane@example.com","password":"secret123"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Cookie", "hr_portal_session=s1")
		rec := httptest.NewRecorder()
		middleware.LoggingMiddleware(newLogger(slog.LevelDebug))(echo).ServeHTTP(rec, req)

		Expect(seen).To(ContainSubstring("secret123"))
		out := buf.String()
		Expect(out).ToNot(ContainSubstring("secret123"))
		Expect(out).ToNot(ContainSubstring("tok-abc-123"))
		Expect(out).ToNot(ContainSubstring("hr_portal_session=s1"))
		Expect(out).To(ContainSubstring("jane@example.com"))
	})

	It("hides the verification token in the query", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify-email?token=t-123", nil)
		middleware.LoggingMiddleware(newLogger(slog.LevelInfo))(okHandler).ServeHTTP(httptest.NewRecorder(), req)

		Expect(buf.String()).ToNot(ContainSubstring("t-123"))
		Expect(buf.String()).To(ContainSubstring(`"status_code":200`))
	})

	It("keeps bodies out of info logs", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader(`{"title":"Onboard"}`))
		middleware.LoggingMiddleware(newLogger(slog.LevelInfo))(okHandler).ServeHTTP(httptest.NewRecorder(), req)

		Expect(buf.String()).To(ContainSubstring("request handled"))
		Expect(buf.String()).ToNot(ContainSubstring("Onboard"))
	})

	It("logs health checks at debug and failures at error", func() {
		lg := newLogger(slog.LevelInfo)
		health := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		middleware.LoggingMiddleware(lg)(okHandler).ServeHTTP(httptest.NewRecorder(), health)
		Expect(buf.String()).To(BeEmpty())

		failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		middleware.LoggingMiddleware(lg)(failing).ServeHTTP(httptest.NewRecorder(), health)
		Expect(buf.String()).To(ContainSubstring(`"level":"ERROR"`))
	})
})
