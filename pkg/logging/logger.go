// Package logging configures the zerolog logger shared by all components.
//
// Setup installs the process-wide logger once at startup; packages derive
// their own logger with NewLogger so every event carries a "component" field.
//
// Levels:
//
//	debug  snapshot hits and misses, retry scheduling, cancelled attempts
//	info   collection loaded, request recovered after retry, breaker closed
//	warn   failed attempt that will be retried, retries exhausted,
//	       snapshot store unavailable, upstream quota low
//	error  collection load failed, breaker opened, upstream quota exhausted
//
// Common fields: component, adapter, breaker, endpoint, attempt, error_class, ttl.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as accepted in configuration.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names used in the "component" field.
const (
	ComponentClient  = "upstream-client"
	ComponentAdapter = "source-adapter"
	ComponentBreaker = "circuit-breaker"
	ComponentLimiter = "rate-limiter"
	ComponentCLI     = "xref-cli"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level written. Unknown names mean info.
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Service, when set, is attached to every event as "service".
	Service string

	// Output defaults to os.Stderr so results on stdout stay clean.
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Service: "quran-xref",
		Output:  os.Stderr,
	}
}

// Setup installs cfg as the global logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

func parseLevel(level LogLevel) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(string(level)))
	if name == "warning" {
		name = "warn"
	}

	parsed, err := zerolog.ParseLevel(name)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// NewLogger derives a logger for component from the global logger.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
