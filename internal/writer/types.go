package writer

import (
	"time"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes. The journal
	// writer uses it as its sync cadence.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     1000,
		FlushInterval: 5 * time.Second,
	}
}

// Schema creates the trades table. Timestamps are stored as integer
// microseconds since epoch.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	product_id     TEXT             NOT NULL,
	trade_id       BIGINT           NOT NULL,
	sequence       BIGINT           NOT NULL,
	side           SMALLINT         NOT NULL,
	size           DOUBLE PRECISION NOT NULL,
	price          DOUBLE PRECISION NOT NULL,
	maker_order_id UUID,
	taker_order_id UUID,
	exchange_ts    BIGINT           NOT NULL,
	received_at    BIGINT           NOT NULL,
	PRIMARY KEY (product_id, trade_id)
);
CREATE INDEX IF NOT EXISTS trades_exchange_ts_idx ON trades (exchange_ts);
`

// tradeRow represents a row to be inserted into the trades table.
type tradeRow struct {
	ProductID    string
	TradeID      int64
	Sequence     int64
	Side         int16
	Size         float64
	Price        float64
	MakerOrderID string // UUID, empty when absent
	TakerOrderID string
	ExchangeTs   int64 // Microseconds
	ReceivedAt   int64 // Microseconds
}

// WriterMetrics holds metrics for the trade writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	SeqGaps   int64
}

// JournalWriterMetrics holds metrics for the journal writer.
type JournalWriterMetrics struct {
	Records int64
	Errors  int64
	Syncs   int64
}
