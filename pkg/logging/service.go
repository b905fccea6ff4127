package logging

import (
	"github.com/NotCoffee418/tp4000zc_logger/pkg/config"
	log "github.com/sirupsen/logrus"
)

// Configure applies level and format to the standard logrus logger.
// Unknown levels fall back to info.
func Configure(cfg config.LogConfig) {
	configure(log.StandardLogger(), cfg)
}

func configure(logger *log.Logger, cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&log.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}
