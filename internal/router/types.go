package router

import (
	"time"

	"github.com/cloudwall/serenity-mdrecorder/internal/model"
)

// RouterConfig holds configuration for the Message Router.
type RouterConfig struct {
	TradeBufferSize   int // Initial capacity of the database writer buffer
	JournalBufferSize int // Initial capacity of the journal writer buffer
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		TradeBufferSize:   5000,
		JournalBufferSize: 5000,
	}
}

// TradeMsg is a decoded match message plus transport metadata.
type TradeMsg struct {
	Trade   model.Trade
	SeqGap  bool  // A trade ID gap preceded this trade
	GapSize int64 // Number of missed trades (0 if no gap)
}

// HeartbeatMsg is a decoded heartbeat message. Heartbeats are consumed
// upstream for gap detection; the router only counts any that slip
// through.
type HeartbeatMsg struct {
	ProductID   string
	Sequence    int64
	LastTradeID int64
	ReceivedAt  time.Time
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	MessagesRouted   int64
	ParseErrors      int64
	UnknownMessages  int64
	TradeBuffer      BufferStats
	JournalBuffer    BufferStats
}

// matchWire is the wire format of a matches-channel message.
type matchWire struct {
	Type         string `json:"type"`
	TradeID      int64  `json:"trade_id"`
	Sequence     int64  `json:"sequence"`
	MakerOrderID string `json:"maker_order_id"`
	TakerOrderID string `json:"taker_order_id"`
	Time         string `json:"time"`
	ProductID    string `json:"product_id"`
	Size         string `json:"size"`
	Price        string `json:"price"`
	Side         string `json:"side"`
}

// messageEnvelope is used for fast type extraction.
type messageEnvelope struct {
	Type string `json:"type"`
}
