package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudwall/serenity-mdrecorder/internal/feed"
	"github.com/cloudwall/serenity-mdrecorder/internal/model"
)

// Router parses raw feed messages and routes decoded trades to the
// writers' buffer.
type Router interface {
	// Start begins routing messages from the input channel.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router.
	Stop(ctx context.Context) error

	// Trades returns the output buffer for the database writer.
	Trades() *GrowableBuffer[TradeMsg]

	// Journal returns the output buffer for the journal writer.
	Journal() *GrowableBuffer[TradeMsg]

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	cfg    RouterConfig
	logger *slog.Logger

	// Input from the feed Subscriber
	input <-chan feed.RawMessage

	// Output to Writers. Every decoded trade goes to both: one copy for
	// the database, one for the binary journal.
	tradeBuf   *GrowableBuffer[TradeMsg]
	journalBuf *GrowableBuffer[TradeMsg]

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	mu              sync.RWMutex
	received        int64
	routed          int64
	parseErrors     int64
	unknownMessages int64
}

// NewRouter creates a new Message Router.
func NewRouter(cfg RouterConfig, input <-chan feed.RawMessage, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		cfg:        cfg,
		logger:     logger,
		input:      input,
		tradeBuf:   NewGrowableBuffer[TradeMsg](cfg.TradeBufferSize),
		journalBuf: NewGrowableBuffer[TradeMsg](cfg.JournalBufferSize),
	}
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("message router started",
		"trade_buffer", r.cfg.TradeBufferSize,
		"journal_buffer", r.cfg.JournalBufferSize,
	)

	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}

	r.tradeBuf.Close()
	r.journalBuf.Close()

	return nil
}

// Trades returns the output buffer for the database writer.
func (r *router) Trades() *GrowableBuffer[TradeMsg] {
	return r.tradeBuf
}

// Journal returns the output buffer for the journal writer.
func (r *router) Journal() *GrowableBuffer[TradeMsg] {
	return r.journalBuf
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RouterStats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		ParseErrors:      r.parseErrors,
		UnknownMessages:  r.unknownMessages,
		TradeBuffer:      r.tradeBuf.Stats(),
		JournalBuffer:    r.journalBuf.Stats(),
	}
}

// routeLoop is the main routing goroutine.
func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.route(raw)
		}
	}
}

// route parses and routes a single message.
func (r *router) route(raw feed.RawMessage) {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()

	var env messageEnvelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		r.logger.Warn("failed to extract message type", "error", err)
		r.mu.Lock()
		r.parseErrors++
		r.mu.Unlock()
		return
	}

	switch env.Type {
	case "match", "last_match":
		msg, err := r.parseMatch(raw)
		if err != nil {
			r.logger.Warn("failed to parse match", "error", err)
			r.mu.Lock()
			r.parseErrors++
			r.mu.Unlock()
			return
		}
		r.journalBuf.Send(msg)
		if r.tradeBuf.Send(msg) {
			r.mu.Lock()
			r.routed++
			r.mu.Unlock()
		}

	case "heartbeat", "subscriptions", "error":
		// Consumed upstream; nothing to route.

	default:
		r.mu.Lock()
		r.unknownMessages++
		r.mu.Unlock()
		r.logger.Debug("skipping message type", "type", env.Type)
	}
}

// parseMatch parses a matches-channel message into a TradeMsg.
func (r *router) parseMatch(raw feed.RawMessage) (TradeMsg, error) {
	var wire matchWire
	if err := json.Unmarshal(raw.Data, &wire); err != nil {
		return TradeMsg{}, err
	}

	side, err := model.ParseSide(wire.Side)
	if err != nil {
		return TradeMsg{}, err
	}

	size, err := strconv.ParseFloat(wire.Size, 64)
	if err != nil {
		return TradeMsg{}, fmt.Errorf("parse size %q: %w", wire.Size, err)
	}

	price, err := strconv.ParseFloat(wire.Price, 64)
	if err != nil {
		return TradeMsg{}, fmt.Errorf("parse price %q: %w", wire.Price, err)
	}

	exchangeTime, err := time.Parse(time.RFC3339Nano, wire.Time)
	if err != nil {
		return TradeMsg{}, fmt.Errorf("parse time %q: %w", wire.Time, err)
	}

	// Order IDs are best-effort: a malformed UUID should not cost us the
	// trade itself.
	makerID, _ := uuid.Parse(wire.MakerOrderID)
	takerID, _ := uuid.Parse(wire.TakerOrderID)

	return TradeMsg{
		Trade: model.Trade{
			Sequence:     wire.Sequence,
			TradeID:      wire.TradeID,
			ProductID:    wire.ProductID,
			Side:         side,
			Size:         size,
			Price:        price,
			MakerOrderID: makerID,
			TakerOrderID: takerID,
			ExchangeTime: exchangeTime,
			ReceivedAt:   raw.ReceivedAt,
		},
		SeqGap:  raw.SeqGap,
		GapSize: raw.GapSize,
	}, nil
}
