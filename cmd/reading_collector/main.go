// Responsible for storing the readings broadcast by the interpreter API
// Depends on the interpreter API being online.
package main

import (
	"github.com/NotCoffee418/tp4000zc_logger/pkg/aggregator"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/config"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/logging"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/pathing"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/readingdb"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := pathing.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	// Load config
	if err := config.LoadReadingCollectorConfig(); err != nil {
		log.Fatalf("Failed to load reading collector config: %v", err)
	}
	cfg := config.ActiveReadingCollectorConfig
	logging.Configure(cfg.Log)

	// Initialize database
	readingdb.InitializeDatabase()

	stop := make(chan struct{})
	go aggregator.RunHourly(cfg.RetentionDays, stop)

	// Subscribe to websocket with revive
	interpreter.StartListener(cfg.InterpreterAPIHost, cfg.TLSEnabled, handleReading)
	close(stop)
}

func handleReading(reading *interpreter.Reading) {
	if err := readingdb.InsertReading(readingdb.DbReadingFromReading(reading)); err != nil {
		log.Errorf("Failed to store reading: %v", err)
		return
	}
	log.Debugf("Stored reading %s", reading.Text)
}
