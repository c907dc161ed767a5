// Package logging configures the process logger used across slotwire.
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Config configures the standard logger.
type Config struct {
	// Level is the minimum level to output (debug, info, warn, error).
	Level string

	// Format selects the formatter: "text" or "json".
	Format string

	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
		Output: os.Stderr,
	}
}

// Init applies cfg to the standard logger.
// Unknown levels fall back to info.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	log.SetOutput(cfg.Output)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	l, err := log.ParseLevel(cfg.Level)
	if err != nil {
		l = log.InfoLevel
	}
	log.SetLevel(l)
}

// L returns the standard logger.
func L() *log.Logger { return log.StandardLogger() }

// WithComponent returns an entry tagged with the component field.
func WithComponent(component string) *log.Entry {
	return log.StandardLogger().WithField("component", component)
}
