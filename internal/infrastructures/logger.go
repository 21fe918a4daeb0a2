package infrastructures

import (
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	logrus.SetFormatter(jsonFormatter())
}

func jsonFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{logrus.FieldKeyMsg: "message"},
	}
}

// ConfigureLogger applies LOG_LEVEL and LOG_FORMAT ("json" or "text").
// Unknown values keep the defaults.
func ConfigureLogger(level, format string) {
	if parsed, err := logrus.ParseLevel(level); err == nil {
		logrus.SetLevel(parsed)
	}

	switch strings.ToLower(format) {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(jsonFormatter())
	}
}
