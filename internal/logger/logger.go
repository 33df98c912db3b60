// Package logger wires logrus the way the rest of the corpus does: a text
// formatter with full timestamps, level set once at startup.
package logger

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/config"
)

// InitLogger configures the package-level logrus logger. level must be one
// of the config.LogLevel* constants.
func InitLogger(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return nil
}

func parseLevel(level string) (logrus.Level, error) {
	switch level {
	case config.LogLevelDebug:
		return logrus.DebugLevel, nil
	case config.LogLevelInfo:
		return logrus.InfoLevel, nil
	case config.LogLevelWarning:
		return logrus.WarnLevel, nil
	case config.LogLevelError:
		return logrus.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("logger: unknown level %q", level)
	}
}
