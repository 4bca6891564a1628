// Package logging configures the process-wide zerolog logger. Output is
// discarded unless debugging is switched on.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const DebugEnv = "QUOTABAR_DEBUG"

// DebugEnabled reports whether QUOTABAR_DEBUG is set to anything but a
// false-ish value.
func DebugEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(DebugEnv))) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

// New returns a console logger writing to w at debug level, or a disabled
// logger when debug is false.
func New(w io.Writer, debug bool) zerolog.Logger {
	if !debug {
		return zerolog.Nop()
	}
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: !isTerminal(w)}
	return zerolog.New(out).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// NewJSON is New with JSON lines output, used when logs go to a file.
func NewJSON(w io.Writer, debug bool) zerolog.Logger {
	if !debug || w == nil {
		return zerolog.Nop()
	}
	return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
