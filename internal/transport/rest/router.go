package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/department"
	"github.com/frahmantamala/hr-portal/internal/document"
	"github.com/frahmantamala/hr-portal/internal/guard"
	"github.com/frahmantamala/hr-portal/internal/metrics"
	"github.com/frahmantamala/hr-portal/internal/notification"
	"github.com/frahmantamala/hr-portal/internal/route"
	"github.com/frahmantamala/hr-portal/internal/session"
	"github.com/frahmantamala/hr-portal/internal/task"
	"github.com/frahmantamala/hr-portal/internal/transport/middleware"
	"github.com/frahmantamala/hr-portal/internal/transport/swagger"
)

type Options struct {
	Env            string
	AllowedOrigins []string
	WSOrigins      []string
	SPADir         string
	MetricsEnabled bool
	MetricsPath    string
	LoginLimiter   *middleware.IPRateLimiter
	OpenAPI        *swagger.Spec
	Health         *HealthHandler
}

func RegisterAllRoutes(router chi.Router, db *sqlx.DB, manager *session.Manager, opts Options, logger *slog.Logger) {
	healthHandler := opts.Health
	if healthHandler == nil {
		healthHandler = NewHealthHandler(db, manager.Count)
	}
	sessionHandler := session.NewHandler(manager, logger)
	navigationHandler := NewNavigationHandler(opts.SPADir, logger)
	departmentHandler := department.NewHandler(session.DepartmentClient, logger)
	taskHandler := task.NewHandler(session.TaskClient, logger)
	documentHandler := document.NewHandler(session.DocumentClient, logger)
	notificationHandler := notification.NewHandler(session.Notifications, opts.WSOrigins, logger)

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(metrics.Instrument)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger, opts.Env))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.SessionContext(manager, logger))

	if opts.MetricsEnabled {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, metrics.Handler())
	}

	if opts.OpenAPI != nil {
		router.Handle("/openapi.yml", opts.OpenAPI)
		router.Handle("/swagger/*", swagger.Handler())
	}

	if opts.SPADir != "" {
		router.Handle("/assets/*", http.FileServer(http.Dir(opts.SPADir)))
	}

	loginLimit := func(next http.Handler) http.Handler { return next }
	if opts.LoginLimiter != nil {
		loginLimit = middleware.RateLimit(opts.LoginLimiter)
	}

	authenticated := middleware.RequireAccess(guard.Requirement{})
	newcomer := middleware.RequireAccess(guard.AtLeast(access.LevelNewcomer))
	verified := middleware.RequireAccess(guard.AtLeast(access.LevelVerified))
	managerOnly := middleware.RequireAccess(guard.AtLeast(access.LevelManager, access.RoleManager, access.RoleAdmin))
	adminOnly := middleware.RequireAccess(guard.AtLeast(access.LevelAdmin, access.RoleAdmin))

	router.With(authenticated).Get("/ws/notifications", notificationHandler.Stream)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(ar chi.Router) {
			ar.With(loginLimit).Post("/login", sessionHandler.Login)
			ar.With(loginLimit).Post("/register", sessionHandler.Register)
			ar.Get("/verify-email", sessionHandler.VerifyEmail)
			ar.Post("/verify-email", sessionHandler.VerifyEmail)
			ar.Post("/logout", sessionHandler.Logout)
			ar.Post("/refresh", sessionHandler.Refresh)
		})

		r.Get("/session", sessionHandler.Current)
		r.With(authenticated).Post("/session/profile/refresh", sessionHandler.RefreshProfile)

		r.Get("/navigation/decide", navigationHandler.Decide)
		r.Get("/navigation/routes", navigationHandler.Routes)

		r.Group(func(pr chi.Router) {
			pr.Use(authenticated)

			pr.With(middleware.RequirePermissions(access.PermProfileWrite)).Put("/profile", sessionHandler.UpdateProfile)

			pr.With(newcomer).Get("/notifications/recent", notificationHandler.Recent)

			pr.Route("/documents", func(dr chi.Router) {
				dr.Use(newcomer)
				dr.With(middleware.RequirePermissions(access.PermDocumentsRead, access.PermDocumentsUpload)).Get("/", documentHandler.List)
				dr.With(middleware.RequirePermissions(access.PermDocumentsUpload)).Post("/", documentHandler.Upload)
				dr.With(adminOnly, middleware.RequirePermissions(access.PermDocumentsReview)).Post("/{id}/review", documentHandler.Review)
			})

			pr.Route("/departments", func(dr chi.Router) {
				dr.Use(verified)
				dr.Get("/", departmentHandler.List)
				dr.Get("/{id}", departmentHandler.Get)
			})

			pr.Route("/tasks", func(tr chi.Router) {
				tr.Use(verified)
				tr.Get("/assigned", taskHandler.ListAssigned)
				tr.Get("/{id}", taskHandler.Get)
				tr.With(middleware.RequirePermissions(access.PermTasksSubmit)).Post("/{id}/submit", taskHandler.Submit)
				tr.Post("/{id}/comments", taskHandler.AddComment)

				tr.Group(func(mr chi.Router) {
					mr.Use(managerOnly)
					mr.With(middleware.RequirePermissions(access.PermTasksAssign)).Get("/created", taskHandler.ListCreated)
					mr.With(middleware.RequirePermissions(access.PermTasksAssign)).Post("/", taskHandler.Create)
					mr.With(middleware.RequirePermissions(access.PermTasksReview)).Post("/{id}/review", taskHandler.Review)
				})
			})
		})
	})

	// Page routes run through the navigation guard
	router.Group(func(pr chi.Router) {
		pr.Use(middleware.NavigationGuard)
		pr.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, route.Dashboard, http.StatusSeeOther)
		})
		for _, e := range route.Entries() {
			pr.Get(e.Path, navigationHandler.Page)
		}
	})
}
