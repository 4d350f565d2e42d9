package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Side is the taker side of a trade.
type Side int16

const (
	// Buy means the taker bought (maker was resting on the ask).
	Buy Side = 0

	// Sell means the taker sold (maker was resting on the bid).
	Sell Side = 1
)

// ParseSide converts the exchange's "buy"/"sell" string to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// String returns the exchange wire representation.
func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Trade represents an executed trade from the matches feed.
type Trade struct {
	Sequence     int64     // Exchange sequence number (per product)
	TradeID      int64     // Exchange trade ID (monotonic per product)
	ProductID    string    // e.g. "BTC-USD"
	Side         Side      // Taker side
	Size         float64   // Base currency quantity
	Price        float64   // Quote currency price
	MakerOrderID uuid.UUID // Resting order
	TakerOrderID uuid.UUID // Aggressing order
	ExchangeTime time.Time // Exchange match timestamp
	ReceivedAt   time.Time // Local receive timestamp
}

// TickerSnap is a last-trade snapshot from the REST ticker endpoint.
type TickerSnap struct {
	ProductID string
	TradeID   int64
	Price     float64
	Size      float64
	Bid       float64
	Ask       float64
	Volume    float64   // 24h base currency volume
	Time      time.Time // Exchange timestamp of the last trade
	SnappedAt time.Time // Local snapshot timestamp
}
