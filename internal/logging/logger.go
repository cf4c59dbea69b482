// Package logging builds the tool plane's zerolog loggers. There is one
// root logger per process; each component (discovery, dispatch, transport)
// logs through a tagged child of it, and each dispatch gets a per-call
// child stamped with the correlation id that the audit record and any
// error envelope for the same call also carry, so one grep over the log,
// the audit trail, and a client-reported envelope ties all three together.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options control root logger construction. Both fields resolve from the
// layered config (log_level, log_format), so they follow the same
// defaults → file → env precedence as everything else; no CLI flag sets them.
type Options struct {
	// Level is a zerolog level name (debug, info, warn, error). An
	// unrecognized value falls back to info; a bad log level should not
	// stop a server that is otherwise configured correctly.
	Level string
	// Format is "console" for human-readable output or "json" for lines a
	// collector can ingest. Anything else is treated as console.
	Format string
	// Output defaults to os.Stderr: stdout belongs to the stdio
	// transport's MCP framing and must never carry a log line.
	Output io.Writer
}

// New builds the process root logger.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "codomyrmex-mcp").
		Logger()
}

// Discard returns a logger that drops everything. Tests use it so
// component construction doesn't write to the test runner's output.
func Discard() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// ForComponent returns a child logger tagged with the tool plane component
// it belongs to.
func ForComponent(parent zerolog.Logger, component string) zerolog.Logger {
	return parent.With().Str("component", component).Logger()
}

// ForDispatch returns the per-call logger for one dispatch. Every state
// transition it logs carries the same correlation id and tool name as the
// call's audit record and, on failure, its error envelope.
func ForDispatch(parent zerolog.Logger, correlationID, toolName string) zerolog.Logger {
	return parent.With().
		Str("correlation_id", correlationID).
		Str("tool_name", toolName).
		Logger()
}
