// Interpreter API reads the multimeter and broadcasts its readings.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/config"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/logging"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/monitor"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/pathing"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/port_reader"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/publisher"
	log "github.com/sirupsen/logrus"
)

const (
	baseRestartDelay = time.Second
	maxRestartDelay  = 30 * time.Second
)

func main() {
	if err := pathing.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	// Load config
	if err := config.LoadInterpreterAPIConfig(); err != nil {
		log.Fatalf("Failed to load interpreter API config: %v", err)
	}
	cfg := config.ActiveInterpreterAPIConfig
	logging.Configure(cfg.Log)
	monitor.Register()

	dmmReader := port_reader.NewDmmReader(
		cfg.Serial.Device,
		cfg.Serial.Driver,
		cfg.Serial.ReadTimeout(),
		cfg.Serial.MaxSyncRetries,
	)
	hub := newClientHub()

	var readingPublisher *publisher.ReadingPublisher
	if cfg.Redis.Enabled {
		var err error
		readingPublisher, err = publisher.NewReadingPublisher(cfg.Redis, cfg.Serial.Device)
		if err != nil {
			log.Warnf("Redis publishing disabled: %v", err)
		} else {
			defer readingPublisher.Close()
		}
	}

	go runAcquisition(dmmReader, func(reading interpreter.Reading) {
		hub.Broadcast(&reading)
		if readingPublisher != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := readingPublisher.Publish(ctx, &reading); err != nil {
				log.Warnf("Failed to publish reading: %v", err)
			}
			cancel()
		}
		log.WithFields(log.Fields{
			"valid":   reading.IsValid,
			"retries": reading.ReadRetryCount,
		}).Debug(reading.Text)
	})

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	log.Printf("Starting TP4000ZC Interpreter API on %s", listener)
	log.Fatal(http.ListenAndServe(listener, newServeMux(dmmReader, hub)))
}

// runAcquisition keeps the reader running. An idle link (meter switched off or
// RS232 disabled) and framing failures both end a session; the next one starts
// after an exponential backoff that resets once a session delivers readings.
func runAcquisition(dmmReader *port_reader.DmmReader, handleReading func(interpreter.Reading)) {
	delay := baseRestartDelay

	for {
		delivered := false
		errCh := make(chan error, 1)
		dmmReader.StartReading(
			func(reading interpreter.Reading) {
				delivered = true
				handleReading(reading)
			},
			func(err error) { errCh <- err },
		)
		err := <-errCh

		if delivered {
			delay = baseRestartDelay
		}
		switch {
		case errors.Is(err, port_reader.ErrNoData):
			log.Infof("Multimeter idle, retrying in %s", delay)
		case errors.Is(err, port_reader.ErrReadFailure):
			log.Warnf("Lost frame alignment: %v, retrying in %s", err, delay)
		default:
			log.Errorf("Error reading multimeter: %v, retrying in %s", err, delay)
		}

		time.Sleep(delay)
		delay = min(delay*2, maxRestartDelay)
	}
}
