// Package logging builds the zerolog logger used for tracing a play session.
// Stdout and stderr belong to the story and its diagnostics, so logs only ever
// go to a file.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/itsmostafa/gotale/internal/version"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger appending JSON lines to path at the given level, and
// the closer for the log file. An empty path yields a disabled logger.
func New(path, level string) (zerolog.Logger, io.Closer, error) {
	if path == "" {
		return zerolog.Nop(), nopCloser{}, nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return NewWithWriter(f, lvl), f, nil
}

// NewWithWriter returns a session logger writing to w.
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("session", uuid.New().String()).
		Str("version", version.Short()).
		Logger()
}
