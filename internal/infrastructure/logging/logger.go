package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/emberhome/ember-core/internal/infrastructure/config"
)

// Logger is the gateway's structured logger, a thin wrapper over
// log/slog. Every entry carries the service name and version so log
// aggregation can tell gateways apart.
//
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml. Format
// is "json" unless "text" is asked for; output is stdout unless
// "stderr" is asked for; unknown levels fall back to info.
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(cfg, writerFor(cfg.Output)).WithAttrs([]slog.Attr{
		slog.String("service", "ember-core"),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// With returns a child logger carrying extra default attributes.
//
//	mqttLog := logger.With("component", "mqtt")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the logger used before configuration loads: JSON to
// stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

func newHandler(cfg config.LoggingConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func writerFor(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps a config level string onto slog's levels. "warning"
// is accepted as an alias for "warn".
func parseLevel(level string) slog.Level {
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
