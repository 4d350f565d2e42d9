package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudwall/serenity-mdrecorder/internal/exchange"
	"github.com/cloudwall/serenity-mdrecorder/internal/model"
)

// TickerSource fetches product tickers. *exchange.Client satisfies it.
type TickerSource interface {
	GetProductTicker(ctx context.Context, productID string) (*exchange.Ticker, error)
}

// SnapHandler receives fetched snapshots.
type SnapHandler interface {
	HandleSnap(snap model.TickerSnap) error
}

// SnapHandlerFunc is a function adapter for SnapHandler.
type SnapHandlerFunc func(model.TickerSnap) error

func (f SnapHandlerFunc) HandleSnap(s model.TickerSnap) error {
	return f(s)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 1m)
	Concurrency int           // Max concurrent requests (default: 10)
	Timeout     time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Minute,
		Concurrency: 10,
		Timeout:     10 * time.Second,
	}
}

// Stats holds cumulative poller counters.
type Stats struct {
	Cycles int64
	Snaps  int64
	Errors int64
}

// Poller periodically fetches ticker snapshots via the REST API.
type Poller struct {
	cfg      Config
	client   TickerSource
	products []string
	handler  SnapHandler
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cycles atomic.Int64
	snaps  atomic.Int64
	errs   atomic.Int64

	now func() time.Time
}

// New creates a new Poller over the given products.
func New(cfg Config, client TickerSource, products []string, handler SnapHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:      cfg,
		client:   client,
		products: products,
		handler:  handler,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("snapshot poller started",
		"interval", p.cfg.Interval,
		"products", len(p.products),
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("snapshot poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns cumulative counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles: p.cycles.Load(),
		Snaps:  p.snaps.Load(),
		Errors: p.errs.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll snaps all products concurrently.
func (p *Poller) pollAll() {
	start := time.Now()

	if len(p.products) == 0 {
		p.logger.Debug("no products to poll")
		return
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var fetched, errCount atomic.Int64

	for _, product := range p.products {
		wg.Add(1)
		go func(productID string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			if err := p.pollProduct(productID); err != nil {
				p.logger.Warn("failed to snap product",
					"product", productID,
					"err", err,
				)
				errCount.Add(1)
				return
			}

			fetched.Add(1)
		}(product)
	}

	wg.Wait()

	p.cycles.Add(1)
	p.snaps.Add(fetched.Load())
	p.errs.Add(errCount.Load())

	p.logger.Info("poll cycle complete",
		"products", len(p.products),
		"fetched", fetched.Load(),
		"errors", errCount.Load(),
		"duration", time.Since(start),
	)
}

// pollProduct snaps a single product and hands it off.
func (p *Poller) pollProduct(productID string) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	tk, err := p.client.GetProductTicker(ctx, productID)
	if err != nil {
		return err
	}

	snap, err := tk.Snap(productID, p.now().UTC())
	if err != nil {
		return err
	}

	if p.handler != nil {
		if err := p.handler.HandleSnap(snap); err != nil {
			return err
		}
	}

	return nil
}
