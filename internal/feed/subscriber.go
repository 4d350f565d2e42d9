package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// newClientFunc builds websocket clients; replaced in tests.
type newClientFunc func(cfg ClientConfig, logger *slog.Logger) Client

// Subscriber maintains a subscription to the matches and heartbeat
// channels for a set of products, reconnecting with exponential backoff
// and re-subscribing after each reconnect.
type Subscriber struct {
	cfg       SubscriberConfig
	logger    *slog.Logger
	newClient newClientFunc

	// Output to the Message Router
	out chan RawMessage

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Per-product trade ID tracking for gap detection
	seqMu       sync.Mutex
	lastTradeID map[string]int64

	// Stats
	statsMu    sync.Mutex
	connected  bool
	reconnects int64
	messages   int64
	dropped    int64
	seqGaps    int64
}

// NewSubscriber creates a feed subscriber.
func NewSubscriber(cfg SubscriberConfig, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = []string{"matches", "heartbeat"}
	}
	return &Subscriber{
		cfg:         cfg,
		logger:      logger,
		newClient:   NewClient,
		out:         make(chan RawMessage, cfg.BufferSize),
		lastTradeID: make(map[string]int64),
	}
}

// Start begins the connect/subscribe/read loop.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("feed subscriber started",
		"url", s.cfg.URL,
		"products", s.cfg.Products,
		"channels", s.cfg.Channels,
	)
	return nil
}

// Stop gracefully shuts down the subscriber.
func (s *Subscriber) Stop(ctx context.Context) error {
	s.logger.Info("stopping feed subscriber")

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("subscriber stop timed out")
	}

	close(s.out)
	s.logger.Info("feed subscriber stopped")
	return nil
}

// Messages returns the output channel for the Message Router.
func (s *Subscriber) Messages() <-chan RawMessage {
	return s.out
}

// Stats returns current statistics.
func (s *Subscriber) Stats() SubscriberStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return SubscriberStats{
		Connected:  s.connected,
		Reconnects: s.reconnects,
		Messages:   s.messages,
		Dropped:    s.dropped,
		SeqGaps:    s.seqGaps,
	}
}

// run owns the connection: connect, subscribe, read until failure, back
// off, repeat. Backoff resets after a successful subscription.
func (s *Subscriber) run() {
	defer s.wg.Done()

	wait := s.cfg.ReconnectBaseDelay
	first := true

	for {
		if !first {
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(wait):
			}

			wait *= 2
			if wait > s.cfg.ReconnectMaxDelay {
				wait = s.cfg.ReconnectMaxDelay
			}

			s.statsMu.Lock()
			s.reconnects++
			s.statsMu.Unlock()
		}
		first = false

		client := s.newClient(ClientConfig{
			URL:          s.cfg.URL,
			PingTimeout:  s.cfg.PingTimeout,
			WriteTimeout: s.cfg.WriteTimeout,
			BufferSize:   s.cfg.BufferSize,
		}, s.logger)

		if err := client.Connect(s.ctx); err != nil {
			s.logger.Warn("feed connect failed", "error", err, "next_wait", wait)
			continue
		}

		if err := s.subscribe(client); err != nil {
			s.logger.Warn("feed subscribe failed", "error", err, "next_wait", wait)
			client.Close()
			continue
		}

		s.setConnected(true)
		wait = s.cfg.ReconnectBaseDelay

		err := s.readUntilFailure(client)
		s.setConnected(false)
		client.Close()

		if s.ctx.Err() != nil {
			return
		}
		s.logger.Warn("feed connection lost, reconnecting", "error", err)
	}
}

// subscribe sends the subscribe command. The acknowledgement arrives as a
// "subscriptions" message on the data stream and is handled in the read
// loop.
func (s *Subscriber) subscribe(client Client) error {
	req := subscribeRequest{
		Type:       "subscribe",
		ProductIDs: s.cfg.Products,
		Channels:   s.cfg.Channels,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	return client.Send(data)
}

// readUntilFailure pumps messages from the client into the output channel
// until the connection errors or the context is cancelled.
func (s *Subscriber) readUntilFailure(client Client) error {
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()

		case err := <-client.Errors():
			return err

		case msg, ok := <-client.Messages():
			if !ok {
				return ErrNotConnected
			}
			s.handleMessage(msg)
		}
	}
}

// handleMessage classifies a raw message, applies gap detection, and
// forwards data messages downstream.
func (s *Subscriber) handleMessage(msg TimestampedMessage) {
	var env seqEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		s.logger.Warn("unparseable feed message", "error", err)
		return
	}

	switch env.Type {
	case "subscriptions":
		s.logger.Info("feed subscription acknowledged", "products", s.cfg.Products)
		return

	case "error":
		var em errorMessage
		json.Unmarshal(msg.Data, &em)
		s.logger.Error("feed error message", "message", em.Message, "reason", em.Reason)
		return

	case "heartbeat":
		// Heartbeats cross-check trade continuity between matches.
		s.checkTradeID(env.ProductID, env.LastTradeID, false)
		return
	}

	var gap bool
	var gapSize int64
	if env.Type == "match" || env.Type == "last_match" {
		gap, gapSize = s.checkTradeID(env.ProductID, env.TradeID, true)
	}

	s.statsMu.Lock()
	s.messages++
	s.statsMu.Unlock()

	raw := RawMessage{
		Data:       msg.Data,
		ReceivedAt: msg.ReceivedAt,
		SeqGap:     gap,
		GapSize:    gapSize,
	}

	select {
	case s.out <- raw:
	case <-s.ctx.Done():
	default:
		s.statsMu.Lock()
		s.dropped++
		s.statsMu.Unlock()
		s.logger.Warn("subscriber buffer full, dropping message")
	}
}

// checkTradeID tracks the last trade ID per product. Trade IDs are
// sequential per product, so a jump bigger than one on a match means
// missed trades. isMatch distinguishes a real trade from a heartbeat's
// last_trade_id report, which only advances the cursor.
func (s *Subscriber) checkTradeID(productID string, tradeID int64, isMatch bool) (gap bool, gapSize int64) {
	if tradeID == 0 || productID == "" {
		return false, 0
	}

	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	last, seen := s.lastTradeID[productID]
	if !seen {
		s.lastTradeID[productID] = tradeID
		return false, 0
	}

	if tradeID <= last {
		// Replay or heartbeat lagging behind the matches stream.
		return false, 0
	}

	if isMatch && tradeID != last+1 {
		missed := tradeID - last - 1
		s.statsMu.Lock()
		s.seqGaps++
		s.statsMu.Unlock()
		s.logger.Warn("trade gap detected",
			"product", productID,
			"expected", last+1,
			"got", tradeID,
			"missed", missed,
		)
		s.lastTradeID[productID] = tradeID
		return true, missed
	}

	s.lastTradeID[productID] = tradeID
	return false, 0
}

func (s *Subscriber) setConnected(v bool) {
	s.statsMu.Lock()
	s.connected = v
	s.statsMu.Unlock()
}

// IsConnected reports whether the subscriber currently has a live,
// acknowledged connection.
func (s *Subscriber) IsConnected() bool {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.connected
}
