// Package logger builds the zerolog logger shared by the Lambda binaries.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const FormatConsole = "console"

// New returns a logger writing to stdout, which Lambda forwards to CloudWatch.
func New(level, format, function string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, format, function)
}

func NewWithWriter(w io.Writer, level, format, function string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if strings.ToLower(format) == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("function", function).Logger()
}
