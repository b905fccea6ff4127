// DMM logger records one session straight from the serial port. The session
// ends when the meter stops sending (switched off or RS232 disabled).
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/config"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/dmmutils"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/logging"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/pathing"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/port_reader"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/readingdb"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "config file (default <config dir>/dmm_logger.toml)")
	device := flag.String("device", "", "serial device, overrides the config")
	count := flag.Int("count", 0, "stop after this many readings, 0 for no limit")
	flag.Parse()

	if err := pathing.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	if *configPath != "" {
		cfg, err := config.LoadDmmLoggerConfigFrom(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		config.ActiveDmmLoggerConfig = cfg
	} else if err := config.LoadDmmLoggerConfig(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.ActiveDmmLoggerConfig
	if *device != "" {
		cfg.Serial.Device = *device
	}
	logging.Configure(cfg.Log)

	if cfg.StoreReadings {
		readingdb.InitializeDatabase()
	}

	dmmReader := port_reader.NewDmmReader(
		cfg.Serial.Device,
		cfg.Serial.Driver,
		cfg.Serial.ReadTimeout(),
		cfg.Serial.MaxSyncRetries,
	)

	session := &session{store: cfg.StoreReadings, limit: *count, stop: dmmReader.StopReading}
	err := dmmReader.Run(session.handle)

	log.Printf("Session ended after %d readings (%d invalid, %d resyncs)",
		session.total, session.invalid, dmmReader.Resyncs.Load())
	if err != nil && !errors.Is(err, port_reader.ErrNoData) {
		log.Errorf("Session aborted: %v", err)
		os.Exit(1)
	}
}

// session stores each reading as it arrives, nothing is held in memory.
type session struct {
	store   bool
	limit   int
	stop    func()
	total   int
	invalid int
}

func (s *session) handle(reading interpreter.Reading) {
	s.total++
	if !reading.IsValid {
		s.invalid++
	}

	fmt.Println(presentation(reading))

	if s.store {
		if err := readingdb.InsertReading(readingdb.DbReadingFromReading(&reading)); err != nil {
			log.Errorf("Failed to store reading: %v", err)
		}
	}

	if s.limit > 0 && s.total >= s.limit {
		s.stop()
	}
}

func presentation(reading interpreter.Reading) string {
	ts := reading.Timestamp.Local().Format("15:04:05.000")
	if !reading.IsValid || reading.NumericValue == nil {
		return fmt.Sprintf("%s  %-16s [%s]", ts, reading.Text, reading.DisplayText)
	}
	value := dmmutils.FormatSI(*reading.NumericValue, reading.Unit.Symbol())
	if reading.AcDc != interpreter.AcDcNone {
		value += " " + string(reading.AcDc)
	}
	if reading.IsDelta {
		value = "delta " + value
	}
	return fmt.Sprintf("%s  %-16s %s", ts, reading.Text, value)
}
