// Package logging configures the process-wide structured logger.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// L returns the shared logger.
func L() *logrus.Logger { return log }

// Setup applies the configured level and format. Unknown levels fall
// back to warn so a typo in config never silences errors.
func Setup(level, format string) {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		lv = logrus.WarnLevel
	}
	log.SetLevel(lv)
	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		log.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano, FullTimestamp: true})
	}
}
