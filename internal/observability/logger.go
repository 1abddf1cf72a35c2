package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogOptions selects the logger's format and threshold.
type LogOptions struct {
	Level  string // trace, debug, info, warn, error; default info
	JSON   bool   // machine-readable output instead of the console writer
	Output io.Writer
}

// NewLogger creates a structured logger tagged with the service name and
// host.
func NewLogger(service string, opts LogOptions) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	zerolog.TimeFieldFormat = time.RFC3339

	return zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Str("service", service).
		Str("host", getHostname()).
		Logger()
}

// WithSession adds session context to a component logger.
func WithSession(l zerolog.Logger, sessionID, peer string) zerolog.Logger {
	return l.With().Str("session_id", sessionID).Str("peer", peer).Logger()
}

func parseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
