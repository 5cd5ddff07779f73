// Package logging configures the gateway's structured logger.
//
// It is a thin layer over log/slog: the config.yaml logging section
// picks the format (json or text), destination (stdout or stderr) and
// level, and every entry is stamped with the service name and version.
// Components receive a *Logger, usually narrowed with With:
//
//	logger := logging.New(cfg.Logging, version)
//	apiLog := logger.With("component", "api")
//	apiLog.Info("listening", "addr", addr)
//
// Secrets never go through the logger - JWT secrets, broker passwords
// and tokens are excluded from log fields at the call site.
package logging
