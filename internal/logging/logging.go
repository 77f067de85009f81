// Package logging builds the logrus logger shared by the kernel and its services.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config controls logger construction
type Config struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a logger writing to w (stderr when nil)
func New(config Config, w io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)
	if config.Level != "" {
		level, err := logrus.ParseLevel(config.Level)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}
	switch strings.ToLower(config.Format) {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", FormatText:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, &FormatError{Format: config.Format}
	}
	return logger, nil
}

// Discard returns a logger that drops every entry, used as a default by components created without one
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// FormatError reports an unsupported log format
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return "unsupported log format: " + e.Format
}
