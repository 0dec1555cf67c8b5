// Package logger builds the structured logger shared by the CLI and the
// ingestion pipeline.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the output format and the minimum level.
type Config struct {
	Env   string // development -> human readable console; anything else -> JSON
	Level string // trace, debug, info, warn, error

	// Out defaults to stderr so that command output on stdout stays clean.
	Out io.Writer
}

// Logger wraps zerolog for injection.
type Logger struct {
	zl zerolog.Logger
}

// New creates a structured logger.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stderr
	if cfg.Out != nil {
		w = cfg.Out
	}
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	zl := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()

	// Libraries that log through the global zerolog logger end up here too.
	log.Logger = zl

	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ParseLevel maps a level name to a zerolog level. Unknown names are info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
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

func (l *Logger) Trace() *zerolog.Event { return l.zl.Trace() }
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// With creates a sub-logger context with fixed fields.
func (l *Logger) With() zerolog.Context {
	return l.zl.With()
}

// Run returns a sub-logger tagged with one run's id and input file.
func (l *Logger) Run(runID, file string) zerolog.Logger {
	return l.zl.With().Str("run_id", runID).Str("file", file).Logger()
}

// Zerolog returns the underlying logger for injection into packages that
// take a zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}
