package storage

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const DEFAULT_LOG_LEVEL = zerolog.WarnLevel

// InitLogger builds the process logger. Diagnostics go to stderr so that
// prompts and results on stdout stay readable.
func InitLogger(level string) zerolog.Logger {
	return NewLogger(os.Stderr, level)
}

func NewLogger(out io.Writer, level string) zerolog.Logger {
	lvl := DEFAULT_LOG_LEVEL
	if level = strings.TrimSpace(level); level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
			lvl = parsed
		}
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
