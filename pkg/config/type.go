package config

// SerialConfig describes the meter link. The line settings are fixed by the
// TP4000ZC (2400 baud 8N1) and not configurable.
type SerialConfig struct {
	Device string `toml:"device"`
	// jacobsa or tarm
	Driver             string  `toml:"driver"`
	ReadTimeoutSeconds float64 `toml:"read_timeout_seconds"`
	MaxSyncRetries     int     `toml:"max_sync_retries"`
}

type LogConfig struct {
	// debug, info, warn or error
	Level string `toml:"level"`
	// text or json
	Format string `toml:"format"`
}

type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

type InterpreterAPIConfig struct {
	ListenAddress string       `toml:"listen_address"`
	ListenPort    int          `toml:"listen_port"`
	Serial        SerialConfig `toml:"serial"`
	Log           LogConfig    `toml:"log"`
	Redis         RedisConfig  `toml:"redis"`
}

type ReadingCollectorConfig struct {
	InterpreterAPIHost string    `toml:"interpreter_api_host"`
	TLSEnabled         bool      `toml:"tls_enabled"`
	RetentionDays      int       `toml:"retention_days"`
	Log                LogConfig `toml:"log"`
}

type DmmLoggerConfig struct {
	Serial SerialConfig `toml:"serial"`
	Log    LogConfig    `toml:"log"`
	// Store readings in the reading database as they arrive
	StoreReadings bool `toml:"store_readings"`
}
