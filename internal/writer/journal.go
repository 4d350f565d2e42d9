package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cloudwall/serenity-mdrecorder/internal/journal"
	"github.com/cloudwall/serenity-mdrecorder/internal/router"
)

// JournalWriter consumes TradeMsg from the router buffer and appends each
// trade to the daily binary journal.
//
// Record layout, in append order:
//
//	time       float64 (unix seconds)
//	sequence   int64
//	trade_id   int64
//	product_id string
//	side       int16
//	size       float64
//	price      float64
type JournalWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from Message Router
	input *router.GrowableBuffer[router.TradeMsg]

	// Journal
	appender *journal.Appender

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	syncTicker *time.Ticker

	// Metrics
	mu      sync.Mutex
	metrics JournalWriterMetrics
}

// NewJournalWriter creates a new JournalWriter appending to j.
func NewJournalWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[router.TradeMsg],
	j *journal.Journal,
	logger *slog.Logger,
) *JournalWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalWriter{
		cfg:      cfg,
		input:    input,
		appender: j.NewAppender(),
		logger:   logger,
	}
}

// Start begins consuming messages and appending to the journal.
func (w *JournalWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.syncTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.logger.Info("journal writer started",
		"sync_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains pending messages, syncs, and closes the journal file.
func (w *JournalWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.syncTicker != nil {
		w.syncTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	// Close patches the length header so readers see the final payload.
	if err := w.appender.Close(); err != nil {
		w.logger.Error("journal close failed", "error", err)
		return err
	}

	w.logger.Info("journal writer stopped")
	return nil
}

// Stats returns current metrics.
func (w *JournalWriter) Stats() JournalWriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// consumeLoop appends trades as they arrive and syncs on the ticker.
// A single goroutine owns the appender, so no locking around it.
func (w *JournalWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case <-w.syncTicker.C:
			w.sync()
		default:
			msg, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					w.drain()
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.append(msg)
		}
	}
}

// drain empties whatever the router buffered before shutdown so the
// day's file carries every routed trade.
func (w *JournalWriter) drain() {
	for {
		msg, ok := w.input.TryReceive()
		if !ok {
			return
		}
		w.append(msg)
	}
}

// append writes one trade record. The rollover check runs between
// records so a record never straddles two daily files.
func (w *JournalWriter) append(msg router.TradeMsg) {
	if err := w.appender.RollIfNeeded(); err != nil {
		w.fail("journal rollover failed", err)
		return
	}

	t := msg.Trade
	err := firstErr(
		w.appender.WriteFloat64(float64(t.ExchangeTime.UnixNano())/1e9),
		w.appender.WriteInt64(t.Sequence),
		w.appender.WriteInt64(t.TradeID),
		w.appender.WriteString(t.ProductID),
		w.appender.WriteInt16(int16(t.Side)),
		w.appender.WriteFloat64(t.Size),
		w.appender.WriteFloat64(t.Price),
	)
	if err != nil {
		w.fail("journal append failed", err)
		return
	}

	w.mu.Lock()
	w.metrics.Records++
	w.mu.Unlock()
}

// sync flushes the in-memory page so the current day's file is readable
// before close.
func (w *JournalWriter) sync() {
	if err := w.appender.Sync(); err != nil {
		w.fail("journal sync failed", err)
		return
	}

	w.mu.Lock()
	w.metrics.Syncs++
	w.mu.Unlock()
}

func (w *JournalWriter) fail(msg string, err error) {
	w.logger.Error(msg, "error", err)
	w.mu.Lock()
	w.metrics.Errors++
	w.mu.Unlock()
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
