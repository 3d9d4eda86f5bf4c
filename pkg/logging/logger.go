// Package logging provides structured logging configuration using zerolog.
// Packages log through component-scoped loggers derived from the global one.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level LogLevel) bool {
	switch strings.ToLower(string(level)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache lookups (bucket, key, hit/miss)
//   - Background revalidation outcomes
//   - Replay attempts that failed and stay queued
//
// Info: Normal operation events
//   - Requests queued for replay
//   - Replayed requests and sweep summaries
//   - Network back online
//   - Server startup/shutdown, precache summaries
//
// Warn: Warning conditions that don't prevent operation
//   - Network offline
//   - Cache read/write failures (treated as a miss)
//   - Expired requests dropped from the retry queue
//   - Precache failures
//
// Error: Error conditions requiring attention
//   - Retry queue unreachable (enqueue, list, remove)
//   - Configuration errors
//   - Server failures
//
// Context Fields:
//   - component: emitting package (gateway, fetch-client, connectivity, ...)
//   - bucket: cache bucket name
//   - key: normalized request locator
//   - method, url: request identity
//   - id: retry queue item ID
//   - deadline: retry queue deadline
//   - status: HTTP status code
//   - error_class: transport error class (network, timeout, canceled, body)
//   - trigger: what started a sweep (tick, online, manual)
