package uploader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudwall/serenity-mdrecorder/internal/journal"
	"github.com/cloudwall/serenity-mdrecorder/internal/model"
	"github.com/cloudwall/serenity-mdrecorder/internal/tickstore"
)

// Config holds uploader settings.
type Config struct {
	// Concurrency bounds the number of products inserted in parallel.
	Concurrency int

	// RetentionDays is how long journal date directories are kept after
	// upload. Zero disables pruning.
	RetentionDays int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:   4,
		RetentionDays: 30,
	}
}

// Uploader replays journal files into the tickstore.
type Uploader struct {
	cfg     Config
	journal *journal.Journal
	store   tickstore.Tickstore
	logger  *slog.Logger

	now func() time.Time
}

// New creates an Uploader reading from j and writing to store.
func New(cfg Config, j *journal.Journal, store tickstore.Tickstore, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Uploader{
		cfg:     cfg,
		journal: j,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// UploadDate replays the journal for the given UTC date into the trades
// dataset and returns the number of rows uploaded. Each product found in
// the journal becomes its own partition version, inserted concurrently.
// A missing journal file is a clean no-op: the feed may simply not have
// traded that day.
func (u *Uploader) UploadDate(ctx context.Context, date time.Time) (int, error) {
	start := u.now()

	byProduct, err := u.readDay(date)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			u.logger.Info("no journal for date, nothing to upload",
				"date", date.Format("2006-01-02"),
			)
			return 0, nil
		}
		return 0, err
	}

	ts := tickstore.NewBiTimestamp(date)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Concurrency)

	var total int
	for product, rows := range byProduct {
		total += len(rows)
		g.Go(func() error {
			if err := u.store.Insert(gctx, tickstore.DatasetTrades, product, ts, rows); err != nil {
				return fmt.Errorf("upload %s %s: %w", product, ts, err)
			}
			u.logger.Info("uploaded product partition",
				"product", product,
				"date", date.Format("2006-01-02"),
				"rows", len(rows),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	u.logger.Info("upload complete",
		"date", date.Format("2006-01-02"),
		"products", len(byProduct),
		"rows", total,
		"duration", time.Since(start),
	)
	return total, nil
}

// readDay decodes every trade record in the date's journal, grouped by
// product.
func (u *Uploader) readDay(date time.Time) (map[string][]tickstore.TickRow, error) {
	r, err := u.journal.OpenReader(date)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string][]tickstore.TickRow)

	for r.Remaining() > 0 {
		row, product, err := readTrade(r)
		if err != nil {
			// A torn tail record means the recorder died mid-flush; keep
			// what decoded cleanly.
			u.logger.Warn("journal decode stopped early",
				"date", date.Format("2006-01-02"),
				"offset", r.Offset(),
				"error", err,
			)
			break
		}
		byProduct[product] = append(byProduct[product], row)
	}

	return byProduct, nil
}

// readTrade decodes one trade record in journal order.
func readTrade(r *journal.Reader) (tickstore.TickRow, string, error) {
	var zero tickstore.TickRow

	ts, err := r.ReadFloat64()
	if err != nil {
		return zero, "", err
	}
	seq, err := r.ReadInt64()
	if err != nil {
		return zero, "", err
	}
	tradeID, err := r.ReadInt64()
	if err != nil {
		return zero, "", err
	}
	product, err := r.ReadString()
	if err != nil {
		return zero, "", err
	}
	side, err := r.ReadInt16()
	if err != nil {
		return zero, "", err
	}
	size, err := r.ReadFloat64()
	if err != nil {
		return zero, "", err
	}
	price, err := r.ReadFloat64()
	if err != nil {
		return zero, "", err
	}

	sec, frac := math.Modf(ts)
	return tickstore.TickRow{
		Time:     time.Unix(int64(sec), int64(frac*1e9)).UTC(),
		Sequence: seq,
		TradeID:  tradeID,
		Side:     model.Side(side),
		Size:     size,
		Price:    price,
	}, product, nil
}
