// Package logging builds the zerolog logger used by jobmon and provides a
// monitor listener that writes job lifecycle and progress events to it.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ConsoleTimeFormat is the timestamp layout of console output
const ConsoleTimeFormat = "15:04:05.000"

// New creates a logger writing to w at the given level ("trace" through "error")
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	// Jobs, the monitor and the CLI log from different goroutines
	w = zerolog.SyncWriter(w)

	switch strings.ToLower(format) {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: ConsoleTimeFormat}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format %q", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// VerbosityLevel maps a repeated -v flag count onto a level, never going
// below base: 1 is debug, 2 or more is trace.
func VerbosityLevel(base zerolog.Level, count int) zerolog.Level {
	var lvl zerolog.Level
	switch {
	case count <= 0:
		return base
	case count == 1:
		lvl = zerolog.DebugLevel
	default:
		lvl = zerolog.TraceLevel
	}
	if lvl < base {
		return lvl
	}
	return base
}

// durationField renders d rounded for log output
func durationField(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
