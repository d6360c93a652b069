package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Services      ServicesConfig      `mapstructure:"services" validate:"required"`
	Session       SessionConfig       `mapstructure:"session"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	SPADir            string        `mapstructure:"spa_dir"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig is optional; without a source the gateway keeps credentials in memory
// or Redis and reports no database health.
type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	CookieTTL    time.Duration `mapstructure:"cookie_ttl" validate:"min=1h"`
}

// ServicesConfig holds the base URLs of the HRMS collaborators.
type ServicesConfig struct {
	Auth       string        `mapstructure:"auth" validate:"required,url"`
	Employee   string        `mapstructure:"employee" validate:"required,url"`
	Department string        `mapstructure:"department" validate:"required,url"`
	Task       string        `mapstructure:"task" validate:"required,url"`
	Document   string        `mapstructure:"document" validate:"required,url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryMax   int           `mapstructure:"retry_max"`
}

type SessionConfig struct {
	RefreshSkew time.Duration `mapstructure:"refresh_skew"`
	TokenStore  string        `mapstructure:"token_store" validate:"oneof=memory redis postgres"`
	RedisURL    string        `mapstructure:"redis_url" validate:"required_if=TokenStore redis"`
}

type NotificationConfig struct {
	URL         string        `mapstructure:"url"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	RecentSize  int           `mapstructure:"recent_size"`
	WSOrigins   string        `mapstructure:"ws_origins"`
}

type RateLimitConfig struct {
	LoginPerMinute int `mapstructure:"login_per_minute"`
	LoginBurst     int `mapstructure:"login_burst"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// LoadConfigFromEnv builds the configuration from environment variables only. It is
// used for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", ""),
			SPADir:            getEnv("SPA_DIR", ""),
			OpenAPIPath:       getEnv("OPENAPI_PATH", "api/openapi.yml"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			CookieName:   getEnv("SESSION_COOKIE_NAME", "hr_portal_session"),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", true),
			CookieTTL:    getEnvAsDuration("SESSION_COOKIE_TTL", 7*24*time.Hour),
		},
		Services: ServicesConfig{
			Auth:       getEnv("AUTH_SERVICE_URL", ""),
			Employee:   getEnv("EMPLOYEE_SERVICE_URL", ""),
			Department: getEnv("DEPARTMENT_SERVICE_URL", ""),
			Task:       getEnv("TASK_SERVICE_URL", ""),
			Document:   getEnv("DOCUMENT_SERVICE_URL", ""),
			Timeout:    getEnvAsDuration("SERVICE_TIMEOUT", 10*time.Second),
			RetryMax:   getEnvAsInt("SERVICE_RETRY_MAX", 3),
		},
		Session: SessionConfig{
			RefreshSkew: getEnvAsDuration("SESSION_REFRESH_SKEW", time.Minute),
			TokenStore:  getEnv("SESSION_TOKEN_STORE", "memory"),
			RedisURL:    getEnv("REDIS_URL", ""),
		},
		Notification: NotificationConfig{
			URL:         getEnv("NOTIFICATION_URL", ""),
			MaxAttempts: getEnvAsInt("NOTIFICATION_MAX_ATTEMPTS", 5),
			BaseDelay:   getEnvAsDuration("NOTIFICATION_BASE_DELAY", time.Second),
			MaxDelay:    getEnvAsDuration("NOTIFICATION_MAX_DELAY", 30*time.Second),
			RecentSize:  getEnvAsInt("NOTIFICATION_RECENT_SIZE", 50),
			WSOrigins:   getEnv("NOTIFICATION_WS_ORIGINS", ""),
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: getEnvAsInt("LOGIN_RATE_PER_MINUTE", 10),
			LoginBurst:     getEnvAsInt("LOGIN_RATE_BURST", 5),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// SplitList turns a comma separated setting into its trimmed, non-empty parts.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Services.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("services config: %v", err))
	}

	if err := c.Session.Validate(c.Database); err != nil {
		errs = append(errs, fmt.Sprintf("session config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	for _, origin := range SplitList(c.AllowedOrigins) {
		if origin == "*" {
			continue
		}
		if _, err := url.Parse(origin); err != nil {
			return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *ServicesConfig) Validate() error {
	services := map[string]string{
		"auth":       c.Auth,
		"employee":   c.Employee,
		"department": c.Department,
		"task":       c.Task,
		"document":   c.Document,
	}
	for name, raw := range services {
		if raw == "" {
			return fmt.Errorf("%s service url is required", name)
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s service url %q", name, raw)
		}
	}
	return nil
}

func (c *SessionConfig) Validate(db DatabaseConfig) error {
	switch c.TokenStore {
	case "", "memory":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("redis_url is required for the redis token store")
		}
	case "postgres":
		if db.Source == "" {
			return errors.New("database source is required for the postgres token store")
		}
	default:
		return fmt.Errorf("unknown token_store %q", c.TokenStore)
	}
	if c.RefreshSkew < 0 {
		return errors.New("refresh_skew cannot be negative")
	}
	return nil
}

func (c *NotificationConfig) Validate() error {
	if c.URL == "" {
		return nil
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid notification url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("notification url must be a websocket url, got scheme %q", u.Scheme)
	}
	if c.MaxDelay > 0 && c.BaseDelay > c.MaxDelay {
		return errors.New("base_delay cannot be greater than max_delay")
	}
	return nil
}
