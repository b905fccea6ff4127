package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/pathing"
)

var (
	ActiveInterpreterAPIConfig   *InterpreterAPIConfig
	ActiveReadingCollectorConfig *ReadingCollectorConfig
	ActiveDmmLoggerConfig        *DmmLoggerConfig
)

func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		Device:             "/dev/ttyUSB0",
		Driver:             "jacobsa",
		ReadTimeoutSeconds: 3.0,
		MaxSyncRetries:     3,
	}
}

func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "text"}
}

func DefaultInterpreterAPIConfig() *InterpreterAPIConfig {
	return &InterpreterAPIConfig{
		ListenAddress: "0.0.0.0",
		ListenPort:    9040,
		Serial:        DefaultSerialConfig(),
		Log:           DefaultLogConfig(),
		Redis: RedisConfig{
			Enabled: false,
			Address: "localhost:6379",
			DB:      0,
			Channel: "dmm:readings",
		},
	}
}

func DefaultReadingCollectorConfig() *ReadingCollectorConfig {
	return &ReadingCollectorConfig{
		InterpreterAPIHost: "localhost:9040",
		TLSEnabled:         false,
		RetentionDays:      30,
		Log:                DefaultLogConfig(),
	}
}

func DefaultDmmLoggerConfig() *DmmLoggerConfig {
	return &DmmLoggerConfig{
		Serial:        DefaultSerialConfig(),
		Log:           DefaultLogConfig(),
		StoreReadings: true,
	}
}

// ReadTimeout converts the configured seconds, falling back to 3s.
func (c SerialConfig) ReadTimeout() time.Duration {
	if c.ReadTimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.ReadTimeoutSeconds * float64(time.Second))
}

func LoadInterpreterAPIConfig() error {
	cfg, err := LoadInterpreterAPIConfigFrom(filepath.Join(pathing.GetConfigDir(), "interpreter_api.toml"))
	if err != nil {
		return err
	}
	ActiveInterpreterAPIConfig = cfg
	return nil
}

func LoadReadingCollectorConfig() error {
	cfg, err := LoadReadingCollectorConfigFrom(filepath.Join(pathing.GetConfigDir(), "reading_collector.toml"))
	if err != nil {
		return err
	}
	ActiveReadingCollectorConfig = cfg
	return nil
}

func LoadDmmLoggerConfig() error {
	cfg, err := LoadDmmLoggerConfigFrom(filepath.Join(pathing.GetConfigDir(), "dmm_logger.toml"))
	if err != nil {
		return err
	}
	ActiveDmmLoggerConfig = cfg
	return nil
}

func LoadInterpreterAPIConfigFrom(configPath string) (*InterpreterAPIConfig, error) {
	return loadOrCreate(configPath, DefaultInterpreterAPIConfig())
}

func LoadReadingCollectorConfigFrom(configPath string) (*ReadingCollectorConfig, error) {
	return loadOrCreate(configPath, DefaultReadingCollectorConfig())
}

func LoadDmmLoggerConfigFrom(configPath string) (*DmmLoggerConfig, error) {
	return loadOrCreate(configPath, DefaultDmmLoggerConfig())
}

// loadOrCreate decodes configPath over the defaults in cfg, so keys missing from
// an older file keep their default. A missing file is created from the defaults.
func loadOrCreate[T any](configPath string, cfg *T) (*T, error) {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return nil, err
		}
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return nil, err
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config %s: %w", configPath, err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	return cfg, nil
}
