// Package lacplog provides the daemon's structured logger, a thin wrapper
// around logrus.
package lacplog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/lacpd/pkg/lacp/handle"
)

// Logger is the package-level logger instance.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLevel parses and applies a log level by name.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetOutput changes the log destination.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches to JSON-formatted log lines.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns a logger with a single field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithPort returns a logger scoped to a specific lport/sport handle.
func WithPort(h handle.Port) *logrus.Entry {
	return Logger.WithField("port", h.String())
}
