// Package logging builds the diagnostic logger. User-facing progress goes
// through the output pipeline; this logger carries state transitions and
// low-level detail for troubleshooting.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const DefaultLevel = "info"

// New creates a logger writing to w at the given level.
func New(w io.Writer, level string) (*logrus.Logger, error) {
	if w == nil {
		w = io.Discard
	}
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.Out = w
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		QuoteEmptyFields: true,
	})
	return logger, nil
}

// Discard returns a logger that drops everything. Used when no debug log is set.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// OpenFile appends to the diagnostic log at path, creating parent directories.
// The caller closes the returned file.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory for %s: %w", path, err)
	}
	// #nosec G304 -- path comes from the operator's --debug-log flag
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}
