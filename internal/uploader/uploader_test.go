package uploader

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cloudwall/serenity-mdrecorder/internal/journal"
	"github.com/cloudwall/serenity-mdrecorder/internal/model"
	"github.com/cloudwall/serenity-mdrecorder/internal/tickstore"
)

// memStore is an in-memory Tickstore capturing inserts.
type memStore struct {
	mu      sync.Mutex
	inserts []memInsert
	failFor string // product whose insert fails
}

type memInsert struct {
	dataset string
	symbol  string
	ts      tickstore.BiTimestamp
	rows    []tickstore.TickRow
}

func (m *memStore) Insert(ctx context.Context, dataset, symbol string, ts tickstore.BiTimestamp, rows []tickstore.TickRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if symbol == m.failFor {
		return errors.New("insert failed")
	}
	m.inserts = append(m.inserts, memInsert{dataset, symbol, ts, rows})
	return nil
}

func (m *memStore) Query(ctx context.Context, dataset, symbol string, start, end, asOf time.Time) ([]tickstore.TickRow, error) {
	return nil, nil
}

func (m *memStore) Delete(ctx context.Context, dataset, symbol string, ts tickstore.BiTimestamp) error {
	return nil
}

func (m *memStore) find(symbol string) (memInsert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ins := range m.inserts {
		if ins.symbol == symbol {
			return ins, true
		}
	}
	return memInsert{}, false
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func writeTrade(t *testing.T, a *journal.Appender, ts time.Time, seq, tradeID int64, product string, side model.Side, size, price float64) {
	t.Helper()
	steps := []error{
		a.WriteFloat64(float64(ts.UnixNano()) / 1e9),
		a.WriteInt64(seq),
		a.WriteInt64(tradeID),
		a.WriteString(product),
		a.WriteInt16(int16(side)),
		a.WriteFloat64(size),
		a.WriteFloat64(price),
	}
	for _, err := range steps {
		if err != nil {
			t.Fatalf("write trade: %v", err)
		}
	}
}

func TestUploader_UploadDate(t *testing.T) {
	j, err := journal.New(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	tradeTime := time.Date(2019, 10, 7, 14, 22, 5, 0, time.UTC)
	a := j.NewAppender()
	writeTrade(t, a, tradeTime, 100, 1, "BTC-USD", model.Buy, 0.5, 8231.42)
	writeTrade(t, a, tradeTime.Add(time.Second), 101, 2, "BTC-USD", model.Sell, 0.1, 8230.00)
	writeTrade(t, a, tradeTime.Add(2*time.Second), 102, 9, "ETH-USD", model.Buy, 2.0, 180.55)
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	store := &memStore{}
	u := New(DefaultConfig(), j, store, quietLogger())

	today := time.Now().UTC()
	rows, err := u.UploadDate(context.Background(), today)
	if err != nil {
		t.Fatalf("UploadDate() error = %v", err)
	}
	if rows != 3 {
		t.Errorf("UploadDate() rows = %d, want 3", rows)
	}

	btc, ok := store.find("BTC-USD")
	if !ok {
		t.Fatal("no BTC-USD insert")
	}
	if btc.dataset != tickstore.DatasetTrades {
		t.Errorf("dataset = %q, want %q", btc.dataset, tickstore.DatasetTrades)
	}
	if len(btc.rows) != 2 {
		t.Fatalf("BTC rows = %d, want 2", len(btc.rows))
	}
	if btc.rows[0].TradeID != 1 || btc.rows[1].TradeID != 2 {
		t.Errorf("BTC trade IDs = %d,%d, want 1,2", btc.rows[0].TradeID, btc.rows[1].TradeID)
	}
	if !btc.rows[0].Time.Equal(tradeTime) {
		t.Errorf("row time = %v, want %v", btc.rows[0].Time, tradeTime)
	}
	if btc.rows[0].Side != model.Buy || btc.rows[0].Price != 8231.42 {
		t.Errorf("row = %+v", btc.rows[0])
	}
	if !btc.ts.AsAt.Equal(tickstore.DateOf(today)) {
		t.Errorf("AsAt = %v, want %v", btc.ts.AsAt, tickstore.DateOf(today))
	}

	eth, ok := store.find("ETH-USD")
	if !ok {
		t.Fatal("no ETH-USD insert")
	}
	if len(eth.rows) != 1 {
		t.Errorf("ETH rows = %d, want 1", len(eth.rows))
	}
}

func TestUploader_MissingJournalIsNoOp(t *testing.T) {
	j, err := journal.New(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	store := &memStore{}
	u := New(DefaultConfig(), j, store, quietLogger())

	// No journal was ever written for this date.
	past := time.Date(2019, 10, 7, 0, 0, 0, 0, time.UTC)
	rows, err := u.UploadDate(context.Background(), past)
	if err != nil {
		t.Fatalf("UploadDate() error = %v, want nil for missing journal", err)
	}
	if rows != 0 {
		t.Errorf("UploadDate() rows = %d, want 0", rows)
	}
	if len(store.inserts) != 0 {
		t.Errorf("inserts = %d, want 0", len(store.inserts))
	}
}

func TestUploader_TornTailKeepsCleanRecords(t *testing.T) {
	j, err := journal.New(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	a := j.NewAppender()
	writeTrade(t, a, time.Now().UTC(), 100, 1, "BTC-USD", model.Buy, 0.5, 8231.42)
	// Partial second record: only the timestamp made it out.
	if err := a.WriteFloat64(1570458125.0); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	store := &memStore{}
	u := New(DefaultConfig(), j, store, quietLogger())

	if _, err := u.UploadDate(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("UploadDate() error = %v", err)
	}

	btc, ok := store.find("BTC-USD")
	if !ok {
		t.Fatal("no BTC-USD insert")
	}
	if len(btc.rows) != 1 {
		t.Errorf("rows = %d, want 1 clean record", len(btc.rows))
	}
}

func TestUploader_InsertFailurePropagates(t *testing.T) {
	j, err := journal.New(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	a := j.NewAppender()
	writeTrade(t, a, time.Now().UTC(), 100, 1, "BTC-USD", model.Buy, 0.5, 8231.42)
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	store := &memStore{failFor: "BTC-USD"}
	u := New(DefaultConfig(), j, store, quietLogger())

	if _, err := u.UploadDate(context.Background(), time.Now().UTC()); err == nil {
		t.Fatal("UploadDate() = nil, want insert error")
	}
}

func TestUploader_PruneJournals(t *testing.T) {
	base := t.TempDir()
	j, err := journal.New(base, 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{"20190901", "20191006", "20191007", "notadate"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	cfg := Config{Concurrency: 1, RetentionDays: 30}
	u := New(cfg, j, &memStore{}, quietLogger())
	u.now = func() time.Time {
		return time.Date(2019, 10, 7, 12, 0, 0, 0, time.UTC)
	}

	removed, err := u.PruneJournals()
	if err != nil {
		t.Fatalf("PruneJournals() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, err := os.Stat(filepath.Join(base, "20190901")); !os.IsNotExist(err) {
		t.Error("20190901 should have been pruned")
	}
	for _, keep := range []string{"20191006", "20191007", "notadate"} {
		if _, err := os.Stat(filepath.Join(base, keep)); err != nil {
			t.Errorf("%s should remain: %v", keep, err)
		}
	}
}

func TestUploader_PruneDisabled(t *testing.T) {
	base := t.TempDir()
	j, err := journal.New(base, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(base, "19990101"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := Config{Concurrency: 1, RetentionDays: 0}
	u := New(cfg, j, &memStore{}, quietLogger())

	removed, err := u.PruneJournals()
	if err != nil {
		t.Fatalf("PruneJournals() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0 when retention disabled", removed)
	}
}
