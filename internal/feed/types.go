package feed

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no heartbeat)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrFeedError       = errors.New("feed error message")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from the websocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a message from the Subscriber to the Message Router.
type RawMessage struct {
	Data       []byte    // Raw message bytes from the websocket
	ReceivedAt time.Time // Local timestamp when the client received it
	SeqGap     bool      // True if a trade ID gap was detected before this message
	GapSize    int64     // Number of missed trades (0 if no gap)
}

// subscribeRequest is the Coinbase Pro subscribe command.
type subscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// envelope is used for fast type extraction.
type envelope struct {
	Type string `json:"type"`
}

// seqEnvelope extracts ordering fields from match and heartbeat messages.
type seqEnvelope struct {
	Type        string `json:"type"`
	ProductID   string `json:"product_id"`
	Sequence    int64  `json:"sequence"`
	TradeID     int64  `json:"trade_id"`
	LastTradeID int64  `json:"last_trade_id"`
}

// errorMessage is the feed's error message payload.
type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// ClientConfig configures a websocket client.
type ClientConfig struct {
	URL          string        // Feed URL (e.g. wss://ws-feed.pro.coinbase.com)
	PingTimeout  time.Duration // Max time without traffic before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   10000,
	}
}

// SubscriberConfig configures the feed subscriber.
type SubscriberConfig struct {
	URL                string        // Feed URL
	Products           []string      // Products to subscribe (e.g. "BTC-USD")
	Channels           []string      // Feed channels; default matches + heartbeat
	ReconnectBaseDelay time.Duration // Base wait time for reconnection
	ReconnectMaxDelay  time.Duration // Max wait time for reconnection
	PingTimeout        time.Duration // Staleness threshold
	WriteTimeout       time.Duration // Write deadline
	BufferSize         int           // Output channel buffer size
}

// DefaultSubscriberConfig returns sensible defaults.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		Channels:           []string{"matches", "heartbeat"},
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		PingTimeout:        60 * time.Second,
		WriteTimeout:       5 * time.Second,
		BufferSize:         10000,
	}
}

// SubscriberStats provides statistics about the subscriber.
type SubscriberStats struct {
	Connected  bool
	Reconnects int64
	Messages   int64
	Dropped    int64
	SeqGaps    int64
}
