package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger every dockhand package writes
// through. It starts as a console logger at info level, so library
// consumers that never call Init still get output.
var Logger = newLogger(Options{})

// Options configures the global logger. The fields mirror the log
// section of pkg/config so a loaded configuration applies field for
// field.
type Options struct {
	// Level is a zerolog level name ("debug", "info", "warn", ...).
	// Empty or unrecognized falls back to info.
	Level string
	// JSON emits machine-readable lines instead of console output.
	JSON bool
	// Writer defaults to stdout.
	Writer io.Writer
}

// Init reconfigures the global logger. Child loggers minted before
// Init keep their old configuration; packages therefore construct
// their With* loggers at use sites, not in package vars.
func Init(opts Options) {
	Logger = newLogger(opts)
}

func newLogger(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := opts.Writer
	if out == nil {
		out = os.Stdout
	}
	var w io.Writer = out
	if !opts.JSON {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// WithComponent tags a child logger with the subsystem it speaks for.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithSessionID tags a child logger with the Host session a line
// belongs to.
func WithSessionID(sessionID string) zerolog.Logger {
	return Logger.With().Str("session_id", sessionID).Logger()
}

// WithInstanceID tags a child logger with the Process/Runner a line
// belongs to.
func WithInstanceID(instanceID int64) zerolog.Logger {
	return Logger.With().Int64("instance_id", instanceID).Logger()
}
