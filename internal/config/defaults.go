package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL            = "https://api.pro.coinbase.com"
	DefaultWSURL              = "wss://ws-feed.pro.coinbase.com"
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultRateLimit          = 3.0 // Coinbase public endpoints: 3 req/s sustained
	DefaultRateBurst          = 6
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultPingTimeout        = 60 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultFeedBufferSize     = 10000
	DefaultJournalBasePath    = "/behemoth/journals/COINBASE_PRO_TRADES"
	DefaultJournalMaxSize     = 64 * 1024 * 1024
	DefaultRetentionDays      = 30
	DefaultBatchSize          = 1000
	DefaultFlushInterval      = 1 * time.Second
	DefaultWriterBufferSize   = 10000
	DefaultSnapInterval       = 1 * time.Minute
	DefaultSnapConcurrency    = 4
	DefaultSnapTimeout        = 10 * time.Second
	DefaultUploaderRunAt      = "00:15:00"
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
)

func (c *RecorderConfig) applyDefaults() {
	// Exchange defaults
	if c.Exchange.RestURL == "" {
		c.Exchange.RestURL = DefaultRestURL
	}
	if c.Exchange.WSURL == "" {
		c.Exchange.WSURL = DefaultWSURL
	}
	if len(c.Exchange.Products) == 0 {
		c.Exchange.Products = []string{"BTC-USD"}
	}
	if c.Exchange.Timeout == 0 {
		c.Exchange.Timeout = DefaultAPITimeout
	}
	if c.Exchange.MaxRetries == 0 {
		c.Exchange.MaxRetries = DefaultMaxRetries
	}
	if c.Exchange.RateLimit == 0 {
		c.Exchange.RateLimit = DefaultRateLimit
	}
	if c.Exchange.RateBurst == 0 {
		c.Exchange.RateBurst = DefaultRateBurst
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Feed defaults
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Journal defaults
	if c.Journal.BasePath == "" {
		c.Journal.BasePath = DefaultJournalBasePath
	}
	if c.Journal.MaxSize == 0 {
		c.Journal.MaxSize = DefaultJournalMaxSize
	}
	if c.Journal.RetentionDays == 0 {
		c.Journal.RetentionDays = DefaultRetentionDays
	}

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultWriterBufferSize
	}

	// Snapshots defaults
	if c.Snapshots.Interval == 0 {
		c.Snapshots.Interval = DefaultSnapInterval
	}
	if c.Snapshots.Concurrency == 0 {
		c.Snapshots.Concurrency = DefaultSnapConcurrency
	}
	if c.Snapshots.Timeout == 0 {
		c.Snapshots.Timeout = DefaultSnapTimeout
	}

	// Uploader defaults
	if c.Uploader.RunAt == "" {
		c.Uploader.RunAt = DefaultUploaderRunAt
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
