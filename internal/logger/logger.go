package logger

import (
	"github.com/sirupsen/logrus"
)

// Init configures the global logrus instance. Unknown levels fall back to
// info.
func Init(levelStr string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
