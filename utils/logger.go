package utils

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  *logrus.Logger
	ErrorLogger *logrus.Logger

	lazyInit sync.Once
)

// InitLogger builds the two process loggers. Info goes to stdout, errors to
// stderr. Level can be raised with LOG_LEVEL (debug, info, warn).
func InitLogger() {
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()

	InfoLogger.SetOutput(os.Stdout)
	InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	ErrorLogger.SetOutput(os.Stderr)
	ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	InfoLogger.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		InfoLogger.SetLevel(lvl)
	}
	ErrorLogger.SetLevel(logrus.ErrorLevel)
}

// Logger returns InfoLogger, initialising the loggers on first use so that
// packages exercised from tests never see a nil logger.
func Logger() *logrus.Logger {
	lazyInit.Do(func() {
		if InfoLogger == nil {
			InitLogger()
		}
	})
	return InfoLogger
}
