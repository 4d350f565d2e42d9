package writer

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwall/serenity-mdrecorder/internal/journal"
	"github.com/cloudwall/serenity-mdrecorder/internal/model"
	"github.com/cloudwall/serenity-mdrecorder/internal/router"
)

func newTestJournalWriter(t *testing.T) (*JournalWriter, *journal.Journal, *router.GrowableBuffer[router.TradeMsg]) {
	t.Helper()
	j, err := journal.New(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("journal.New() error = %v", err)
	}
	input := router.NewGrowableBuffer[router.TradeMsg](10)
	cfg := WriterConfig{BatchSize: 10, FlushInterval: 50 * time.Millisecond}
	return NewJournalWriter(cfg, input, j, nil), j, input
}

func TestJournalWriter_AppendsAndReplays(t *testing.T) {
	w, j, input := newTestJournalWriter(t)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	exchangeTime := time.Date(2019, 10, 7, 14, 22, 5, 124000000, time.UTC)
	trades := []model.Trade{
		{Sequence: 100, TradeID: 555, ProductID: "BTC-USD", Side: model.Buy, Size: 0.25, Price: 8231.42, ExchangeTime: exchangeTime},
		{Sequence: 101, TradeID: 556, ProductID: "BTC-USD", Side: model.Sell, Size: 1.5, Price: 8230.00, ExchangeTime: exchangeTime.Add(time.Second)},
	}
	for _, tr := range trades {
		input.Send(router.TradeMsg{Trade: tr})
	}

	deadline := time.Now().Add(2 * time.Second)
	for w.Stats().Records < int64(len(trades)) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := w.Stats().Records; got != int64(len(trades)) {
		t.Fatalf("Records = %d, want %d", got, len(trades))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	r, err := j.OpenReader(time.Now().UTC())
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}

	for i, want := range trades {
		ts, err := r.ReadFloat64()
		if err != nil {
			t.Fatalf("record %d: read time: %v", i, err)
		}
		wantTs := float64(want.ExchangeTime.UnixNano()) / 1e9
		if ts != wantTs {
			t.Errorf("record %d: time = %v, want %v", i, ts, wantTs)
		}

		seq, _ := r.ReadInt64()
		if seq != want.Sequence {
			t.Errorf("record %d: sequence = %d, want %d", i, seq, want.Sequence)
		}
		tradeID, _ := r.ReadInt64()
		if tradeID != want.TradeID {
			t.Errorf("record %d: trade_id = %d, want %d", i, tradeID, want.TradeID)
		}
		product, _ := r.ReadString()
		if product != want.ProductID {
			t.Errorf("record %d: product = %q, want %q", i, product, want.ProductID)
		}
		side, _ := r.ReadInt16()
		if side != int16(want.Side) {
			t.Errorf("record %d: side = %d, want %d", i, side, want.Side)
		}
		size, _ := r.ReadFloat64()
		if size != want.Size {
			t.Errorf("record %d: size = %v, want %v", i, size, want.Size)
		}
		price, _ := r.ReadFloat64()
		if price != want.Price {
			t.Errorf("record %d: price = %v, want %v", i, price, want.Price)
		}
	}

	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d after all records, want 0", r.Remaining())
	}
}

func TestJournalWriter_SyncMakesFileReadable(t *testing.T) {
	w, j, input := newTestJournalWriter(t)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		w.Stop(ctx)
	}()

	input.Send(router.TradeMsg{Trade: model.Trade{
		TradeID:      1,
		ProductID:    "ETH-USD",
		ExchangeTime: time.Now().UTC(),
	}})

	// The sync ticker fires every 50ms; wait for one sync after the append.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s := w.Stats()
		if s.Records >= 1 && s.Syncs >= 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	r, err := j.OpenReader(time.Now().UTC())
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	if r.Len() == 0 {
		t.Error("journal empty after sync, want readable payload")
	}
}

func TestJournalWriter_StopDrainsBuffer(t *testing.T) {
	w, j, input := newTestJournalWriter(t)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const n = 25
	for i := int64(1); i <= n; i++ {
		input.Send(router.TradeMsg{Trade: model.Trade{
			Sequence:     i,
			TradeID:      i,
			ProductID:    "BTC-USD",
			ExchangeTime: time.Now().UTC(),
		}})
	}

	// Stop immediately: whatever the consumer has not picked up yet must
	// still land in the journal before the file closes.
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := w.Stats().Records; got != n {
		t.Errorf("Records = %d, want %d", got, n)
	}

	r, err := j.OpenReader(time.Now().UTC())
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	var count int
	for r.Remaining() > 0 {
		if _, err := r.ReadFloat64(); err != nil {
			t.Fatalf("record %d: read time: %v", count, err)
		}
		r.ReadInt64()
		r.ReadInt64()
		r.ReadString()
		r.ReadInt16()
		r.ReadFloat64()
		r.ReadFloat64()
		count++
	}
	if count != n {
		t.Errorf("replayed %d records, want %d", count, n)
	}
}

func TestJournalWriter_Lifecycle(t *testing.T) {
	w, _, _ := newTestJournalWriter(t)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
