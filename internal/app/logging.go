package app

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogger настраивает стандартный logrus-логгер по конфигурации.
func ConfigureLogger(logger *log.Logger, level, format string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(parsed)
	logger.SetOutput(os.Stdout)

	switch format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unsupported log format %q", format)
	}
	return nil
}
