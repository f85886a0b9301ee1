package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Entry
)

type Fields = logrus.Fields

func SetLevel(l logrus.Level) {
	logger.Logger.SetLevel(l)
}

func init() {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger = logrus.NewEntry(l)
	}
}

// Logger is the process logger handed to the chain, mempool and node
// packages.
func Logger() *logrus.Logger {
	return logger.Logger
}

// Component scopes log lines to a named part of the daemon.
func Component(name string) *logrus.Entry {
	return logger.WithField("component", name)
}

func WithError(e error) *logrus.Entry {
	return logger.WithError(e)
}

func Entry() *logrus.Entry {
	return logger
}
