package config

import "time"

// RecorderConfig is the root configuration for all mdrecorder binaries.
type RecorderConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Database  DBConfig        `yaml:"database"`
	Feed      FeedConfig      `yaml:"feed"`
	Journal   JournalConfig   `yaml:"journal"`
	Writers   WritersConfig   `yaml:"writers"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Uploader  UploaderConfig  `yaml:"uploader"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this recorder.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ExchangeConfig holds Coinbase Pro API settings.
type ExchangeConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	Products   []string      `yaml:"products"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RateLimit  float64       `yaml:"rate_limit"` // Requests per second (public API budget)
	RateBurst  int           `yaml:"rate_burst"`
}

// DBConfig holds the Postgres connection for trades and the tickstore.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// FeedConfig holds websocket feed settings.
type FeedConfig struct {
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
}

// JournalConfig holds binary journal settings.
type JournalConfig struct {
	BasePath      string `yaml:"base_path"`
	MaxSize       int    `yaml:"max_size"`
	RetentionDays int    `yaml:"retention_days"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// SnapshotsConfig holds snapshot poller settings.
type SnapshotsConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// UploaderConfig holds daily journal upload settings.
type UploaderConfig struct {
	RunAt string `yaml:"run_at"` // UTC wall-clock "HH:MM:SS"
}

// MetricsConfig holds metrics/health HTTP server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
