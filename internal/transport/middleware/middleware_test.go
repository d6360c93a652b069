package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/auth"
	"github.com/frahmantamala/hr-portal/internal/guard"
	"github.com/frahmantamala/hr-portal/internal/metrics"
	"github.com/frahmantamala/hr-portal/internal/route"
	"github.com/frahmantamala/hr-portal/internal/session"
	"github.com/frahmantamala/hr-portal/internal/transport/middleware"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = BeforeSuite(func() {
	metrics.Init()
})

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	managerProfile  = `{"user_id":"u1","email":"jane@example.com","employee":{"verification_status":"VERIFIED","employee_profile_status":"COMPLETE"},"roles":[{"role_code":"MANAGER","is_active":true}]}`
	newcomerProfile = `{"user_id":"u1","email":"jane@example.com","employee":{"verification_status":"PENDING_DETAILS_REVIEW","employee_profile_status":"COMPLETE"},"roles":[]}`
)

// signedIn logs a store in against a fake auth and employee service returning profile.
func signedIn(profile string) *session.Store {
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	Expect(err).ToNot(HaveOccurred())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"user":          map[string]string{"id": "u1", "email": "jane@example.com"},
				"access_token":  accessToken,
				"refresh_token": "refresh-1",
			})
		case "/api/v1/employees/me":
			_, _ = w.Write([]byte(profile))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	DeferCleanup(server.Close)

	factory := session.NewClientFactory(session.FactoryConfig{
		Services: session.ServiceURLs{Auth: server.URL, Employee: server.URL, Department: server.URL, Task: server.URL, Document: server.URL},
	}, nil, quiet)
	store, err := session.NewStore("s1", session.StoreConfig{}, factory, session.NewMemoryTokenStore(0), quiet)
	Expect(err).ToNot(HaveOccurred())
	DeferCleanup(store.Close)

	_, err = store.Login(context.Background(), auth.LoginDTO{Email: "jane@example.com", Password: "secret123"})
	Expect(err).ToNot(HaveOccurred())
	return store
}

func request(method, path string, store *session.Store) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if store != nil {
		req = req.WithContext(session.WithStore(req.Context(), store))
	}
	return req
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type denial struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
	Redirect string `json:"redirect"`
}

func decodeDenial(rr *httptest.ResponseRecorder) denial {
	var d denial
	Expect(json.NewDecoder(rr.Body).Decode(&d)).To(Succeed())
	return d
}

var _ = Describe("NavigationGuard", func() {
	handler := middleware.NavigationGuard(okHandler)

	It("sends guests to the login page with a return path", func() {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodGet, "/tasks", nil))

		Expect(rr.Code).To(Equal(http.StatusSeeOther))
		Expect(rr.Header().Get("Location")).To(Equal(guard.LoginRedirect("/tasks")))
	})

	It("lets guests open public pages", func() {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodGet, route.Login, nil))
		Expect(rr.Code).To(Equal(http.StatusOK))
	})

	It("keeps signed in users away from guest-only pages", func() {
		store := signedIn(managerProfile)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodGet, route.Login, store))

		Expect(rr.Code).To(Equal(http.StatusSeeOther))
		Expect(rr.Header().Get("Location")).To(Equal(route.ManagerDashboard))
	})

	It("restricts newcomers to the onboarding pages", func() {
		store := signedIn(newcomerProfile)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodGet, route.Tasks, store))

		Expect(rr.Code).To(Equal(http.StatusSeeOther))
		Expect(rr.Header().Get("Location")).To(Equal(route.NewcomerDashboard))

		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodGet, route.Documents, store))
		Expect(rr.Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("RequireAccess", func() {
	handler := middleware.RequireAccess(guard.AtLeast(access.LevelVerified))(okHandler)

	It("answers 401 with the login page for guests", func() {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodGet, "/api/v1/tasks/assigned", nil))

		Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		Expect(decodeDenial(rr).Redirect).To(Equal(route.Login))
	})

	It("answers 403 with the user's dashboard when the level is too low", func() {
		store := signedIn(newcomerProfile)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodGet, "/api/v1/tasks/assigned", store))

		Expect(rr.Code).To(Equal(http.StatusForbidden))
		Expect(decodeDenial(rr).Redirect).To(Equal(route.NewcomerDashboard))
	})

	It("passes sessions at or above the level", func() {
		store := signedIn(managerProfile)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodGet, "/api/v1/tasks/assigned", store))
		Expect(rr.Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("RequirePermissions", func() {
	handler := middleware.RequirePermissions(access.PermTasksAssign)(okHandler)

	It("rejects guests", func() {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodPost, "/api/v1/tasks", nil))
		Expect(rr.Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects sessions without any of the permissions", func() {
		store := signedIn(newcomerProfile)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodPost, "/api/v1/tasks", store))
		Expect(rr.Code).To(Equal(http.StatusForbidden))
	})

	It("passes sessions holding one of the permissions", func() {
		store := signedIn(managerProfile)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request(http.MethodPost, "/api/v1/tasks", store))
		Expect(rr.Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	It("writes an error boundary with recovery actions", func() {
		rr := httptest.NewRecorder()
		middleware.RecoveryMiddleware(quiet, "development")(boom).ServeHTTP(rr, request(http.MethodGet, "/profile", nil))

		Expect(rr.Code).To(Equal(http.StatusInternalServerError))
		var body middleware.ErrorBoundary
		Expect(json.NewDecoder(rr.Body).Decode(&body)).To(Succeed())
		Expect(body.Actions).To(ConsistOf("retry", "home", "reload"))
		Expect(body.Home).To(Equal(route.Login))
		Expect(body.Message).To(ContainSubstring("boom"))
		Expect(body.Stack).ToNot(BeEmpty())
	})

	It("hides panic details in production", func() {
		rr := httptest.NewRecorder()
		middleware.RecoveryMiddleware(quiet, "production")(boom).ServeHTTP(rr, request(http.MethodGet, "/profile", nil))

		var body middleware.ErrorBoundary
		Expect(json.NewDecoder(rr.Body).Decode(&body)).To(Succeed())
		Expect(body.Message).ToNot(ContainSubstring("boom"))
		Expect(body.Stack).To(BeEmpty())
	})

	It("points signed in users at their dashboard", func() {
		store := signedIn(managerProfile)
		rr := httptest.NewRecorder()
		middleware.RecoveryMiddleware(quiet, "production")(boom).ServeHTTP(rr, request(http.MethodGet, "/profile", store))

		var body middleware.ErrorBoundary
		Expect(json.NewDecoder(rr.Body).Decode(&body)).To(Succeed())
		Expect(body.Home).To(Equal(route.ManagerDashboard))
	})

	It("lets aborted handlers keep aborting", func() {
		abort := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		})
		Expect(func() {
			middleware.RecoveryMiddleware(quiet, "production")(abort).ServeHTTP(httptest.NewRecorder(), request(http.MethodGet, "/", nil))
		}).To(PanicWith(http.ErrAbortHandler))
	})
})

var _ = Describe("RateLimit", func() {
	It("answers 429 once an IP spends its burst", func() {
		handler := middleware.RateLimit(middleware.NewIPRateLimiter(1, 2))(okHandler)

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			rr := httptest.NewRecorder()
			req := request(http.MethodPost, "/api/v1/auth/login", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			handler.ServeHTTP(rr, req)
			codes = append(codes, rr.Code)
			if rr.Code == http.StatusTooManyRequests {
				Expect(rr.Header().Get("Retry-After")).ToNot(BeEmpty())
			}
		}
		Expect(codes).To(Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}))

		rr := httptest.NewRecorder()
		req := request(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		handler.ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusOK))
	})

	It("forgets idle visitors", func() {
		l := middleware.NewIPRateLimiter(1, 1)
		Expect(l.Allow("10.0.0.1")).To(BeTrue())
		Expect(l.Allow("10.0.0.1")).To(BeFalse())

		l.Cleanup(0)
		Expect(l.Allow("10.0.0.1")).To(BeTrue())
	})
})

var _ = Describe("CORS", func() {
	handler := middleware.CORS([]string{"https://portal.example.com/"})(okHandler)

	It("allows listed origins with credentials", func() {
		rr := httptest.NewRecorder()
		req := request(http.MethodGet, "/api/v1/session", nil)
		req.Header.Set("Origin", "https://portal.example.com")
		handler.ServeHTTP(rr, req)

		Expect(rr.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://portal.example.com"))
		Expect(rr.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
	})

	It("ignores other origins", func() {
		rr := httptest.NewRecorder()
		req := request(http.MethodGet, "/api/v1/session", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		handler.ServeHTTP(rr, req)
		Expect(rr.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("short-circuits preflight requests", func() {
		rr := httptest.NewRecorder()
		req := request(http.MethodOptions, "/api/v1/auth/login", nil)
		req.Header.Set("Origin", "https://portal.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		handler.ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusNoContent))
	})
})

type resolverFunc func(ctx context.Context, r *http.Request) (*session.Store, error)

func (f resolverFunc) Resolve(ctx context.Context, r *http.Request) (*session.Store, error) {
	return f(ctx, r)
}

var _ = Describe("SessionContext", func() {
	var seen bool
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = session.FromContext(r.Context())
	})

	It("continues as a guest without a session", func() {
		resolver := resolverFunc(func(context.Context, *http.Request) (*session.Store, error) {
			return nil, session.ErrNoSession
		})
		middleware.SessionContext(resolver, quiet)(capture).ServeHTTP(httptest.NewRecorder(), request(http.MethodGet, "/", nil))
		Expect(seen).To(BeFalse())
	})

	It("continues as a guest when restore fails", func() {
		resolver := resolverFunc(func(context.Context, *http.Request) (*session.Store, error) {
			return nil, errors.New("token store down")
		})
		middleware.SessionContext(resolver, quiet)(capture).ServeHTTP(httptest.NewRecorder(), request(http.MethodGet, "/", nil))
		Expect(seen).To(BeFalse())
	})

	It("attaches the resolved store", func() {
		store := signedIn(managerProfile)
		resolver := resolverFunc(func(context.Context, *http.Request) (*session.Store, error) {
			return store, nil
		})
		middleware.SessionContext(resolver, quiet)(capture).ServeHTTP(httptest.NewRecorder(), request(http.MethodGet, "/", nil))
		Expect(seen).To(BeTrue())
	})
})
