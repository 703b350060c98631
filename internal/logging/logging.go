// Package logging builds the zerolog logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Log output formats accepted by ForFormat.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a console logger writing to w. Verbose lowers the level to
// debug.
func New(w io.Writer, verbose bool) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level(verbose)).With().Timestamp().Logger()
}

// JSON returns a structured logger for non-interactive use.
func JSON(w io.Writer, verbose bool) zerolog.Logger {
	return zerolog.New(w).Level(level(verbose)).With().Timestamp().Logger()
}

// ForFormat returns the logger for format, FormatConsole when empty.
func ForFormat(w io.Writer, format string, verbose bool) (zerolog.Logger, error) {
	switch format {
	case "", FormatConsole:
		return New(w, verbose), nil
	case FormatJSON:
		return JSON(w, verbose), nil
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (want %s or %s)", format, FormatConsole, FormatJSON)
	}
}

func level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
