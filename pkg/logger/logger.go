package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// Options overrides the environment defaults. Empty fields keep the default.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Init builds the process logger. Production defaults to JSON at info level;
// everything else defaults to text at debug level.
func Init(env string, opts ...Options) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	lvl := slog.LevelDebug
	format := "text"
	if env == "production" {
		lvl = slog.LevelInfo
		format = "json"
	}
	if o.Level != "" {
		lvl = ParseLevel(o.Level)
	}
	if o.Format != "" {
		format = strings.ToLower(o.Format)
	}
	out := o.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func LoggerWrapper() *slog.Logger {
	if defaultLogger == nil {
		// lazy initialize a development logger to avoid nil pointer panics
		Init("development")
	}
	return defaultLogger
}
