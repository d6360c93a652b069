package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/metrics"
	"github.com/frahmantamala/hr-portal/internal/notification"
	"github.com/frahmantamala/hr-portal/internal/session"
	sessionpg "github.com/frahmantamala/hr-portal/internal/session/postgres"
	sessionredis "github.com/frahmantamala/hr-portal/internal/session/redis"
	"github.com/frahmantamala/hr-portal/internal/transport/httpclient"
	"github.com/frahmantamala/hr-portal/internal/transport/middleware"
	"github.com/frahmantamala/hr-portal/internal/transport/rest"
	"github.com/frahmantamala/hr-portal/internal/transport/swagger"
	"github.com/frahmantamala/hr-portal/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the portal gateway serving pages, the session API and the notification relay`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config        *internal.Config
	DB            *sqlx.DB
	Redis         *goredis.Client
	Router        *chi.Mux
	HealthChecker *rest.HealthHandler
	Sessions      *session.Manager
	Tokens        session.TokenStore
	LoginLimiter  *middleware.IPRateLimiter
	OpenAPI       *swagger.Spec
	Logger        *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go runMaintenance(bgCtx, deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "token_store", deps.Config.Session.TokenStore)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	stopBackground()
	deps.Sessions.Shutdown()
	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			deps.Logger.Error("Redis close error", "error", err)
		}
	}
	if deps.DB != nil {
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config
	rest.RegisterAllRoutes(deps.Router, deps.DB, deps.Sessions, rest.Options{
		Env:            cfg.Env,
		AllowedOrigins: internal.SplitList(cfg.Server.AllowedOrigins),
		WSOrigins:      internal.SplitList(cfg.Notification.WSOrigins),
		SPADir:         cfg.Server.SPADir,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
		LoginLimiter:   deps.LoginLimiter,
		OpenAPI:        deps.OpenAPI,
		Health:         deps.HealthChecker,
	}, deps.Logger)
}

// runMaintenance forgets idle rate limit visitors and purges expired credentials.
func runMaintenance(ctx context.Context, deps *Dependencies) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	purger, _ := deps.Tokens.(*sessionpg.TokenStore)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deps.LoginLimiter.Cleanup(10 * time.Minute)
			if purger == nil {
				continue
			}
			n, err := purger.PurgeExpired(ctx)
			if err != nil {
				deps.Logger.Warn("purging expired credentials failed", "error", err)
				continue
			}
			if n > 0 {
				deps.Logger.Info("purged expired credentials", "count", n)
			}
		}
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Env, logger.Options{
		Level:  config.Observability.Logging.Level,
		Format: config.Observability.Logging.Format,
	})
	lg := logger.LoggerWrapper()
	metrics.Init()

	deps := &Dependencies{
		Config: config,
		Logger: lg,
		Router: chi.NewRouter(),
	}

	if config.Database.Source != "" {
		db, err := initDB(config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		deps.DB = db
	}

	var sessionCount func() int
	deps.HealthChecker = rest.NewHealthHandler(deps.DB, func() int { return sessionCount() })

	tokens, err := initTokenStore(context.Background(), deps)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}
	deps.Tokens = tokens

	retry := httpclient.DefaultRetryConfig()
	if config.Services.RetryMax > 0 {
		retry.MaxAttempts = config.Services.RetryMax
	}
	factory := session.NewClientFactory(session.FactoryConfig{
		Services: session.ServiceURLs{
			Auth:       config.Services.Auth,
			Employee:   config.Services.Employee,
			Department: config.Services.Department,
			Task:       config.Services.Task,
			Document:   config.Services.Document,
		},
		Timeout: config.Services.Timeout,
		Retry:   retry,
		Notification: notification.ListenerConfig{
			URL:         config.Notification.URL,
			MaxAttempts: config.Notification.MaxAttempts,
			BaseDelay:   config.Notification.BaseDelay,
			MaxDelay:    config.Notification.MaxDelay,
		},
	}, nil, lg)

	deps.Sessions = session.NewManager(session.ManagerConfig{
		CookieName:   config.Security.CookieName,
		CookieSecure: config.Security.CookieSecure,
		CookieTTL:    config.Security.CookieTTL,
		Store: session.StoreConfig{
			RefreshSkew: config.Session.RefreshSkew,
			RecentSize:  config.Notification.RecentSize,
		},
	}, factory, tokens, lg)
	sessionCount = deps.Sessions.Count

	perMinute, burst := config.RateLimit.LoginPerMinute, config.RateLimit.LoginBurst
	if perMinute <= 0 {
		perMinute = 10
	}
	deps.LoginLimiter = middleware.NewIPRateLimiter(perMinute, burst)

	if path := config.Server.OpenAPIPath; path != "" {
		spec, err := swagger.Load(context.Background(), path)
		if err != nil {
			lg.Warn("OpenAPI document not served", "path", path, "error", err)
		} else {
			deps.OpenAPI = spec
			lg.Debug("OpenAPI document loaded", "operations", len(spec.Operations()))
		}
	}

	return deps, nil
}

func initTokenStore(ctx context.Context, deps *Dependencies) (session.TokenStore, error) {
	cfg := deps.Config
	ttl := cfg.Security.CookieTTL

	switch cfg.Session.TokenStore {
	case "redis":
		client, err := sessionredis.Open(ctx, cfg.Session.RedisURL)
		if err != nil {
			return nil, err
		}
		deps.Redis = client
		deps.HealthChecker.AddCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		return sessionredis.NewTokenStore(client, ttl), nil
	case "postgres":
		if deps.DB == nil {
			return nil, errors.New("postgres token store needs database.source")
		}
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: deps.DB.DB}), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open gorm on the shared pool: %w", err)
		}
		return sessionpg.NewTokenStore(gdb, ttl), nil
	default:
		return session.NewMemoryTokenStore(ttl), nil
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
