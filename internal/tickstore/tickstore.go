package tickstore

import (
	"context"
	"time"

	"github.com/cloudwall/serenity-mdrecorder/internal/model"
)

// Well-known datasets. Mirrors the journal/tick library split: trades come
// from the journaled websocket feed, snaps from the one-minute REST poller.
const (
	DatasetTrades = "COINBASE_PRO_TRADES"
	DatasetSnaps  = "COINBASE_PRO_ONE_MIN_SNAP"
)

// TickRow is one stored tick. Trade rows fill Sequence/TradeID/Side;
// snapshot rows fill Bid/Ask and leave Sequence zero.
type TickRow struct {
	Time     time.Time
	Sequence int64
	TradeID  int64
	Side     model.Side
	Size     float64
	Price    float64
	Bid      float64
	Ask      float64
}

// Tickstore stores versioned daily partitions of tick data per symbol.
//
// Every Insert creates a new version of the (dataset, symbol, as-at date)
// partition; queries read the newest version recorded at or before the
// given as-of time, so historical reads are reproducible.
type Tickstore interface {
	// Insert writes rows as a new version of the partition named by ts.
	Insert(ctx context.Context, dataset, symbol string, ts BiTimestamp, rows []TickRow) error

	// Query returns rows with Time in [start, end) from the newest
	// version of each daily partition created at or before asOf.
	Query(ctx context.Context, dataset, symbol string, start, end, asOf time.Time) ([]TickRow, error)

	// Delete writes a tombstone version for the partition named by ts.
	Delete(ctx context.Context, dataset, symbol string, ts BiTimestamp) error
}
