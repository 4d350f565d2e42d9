package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cloudwall/serenity-mdrecorder/internal/config"
	"github.com/cloudwall/serenity-mdrecorder/internal/database"
	"github.com/cloudwall/serenity-mdrecorder/internal/exchange"
	"github.com/cloudwall/serenity-mdrecorder/internal/metrics"
	"github.com/cloudwall/serenity-mdrecorder/internal/model"
	"github.com/cloudwall/serenity-mdrecorder/internal/poller"
	"github.com/cloudwall/serenity-mdrecorder/internal/tickstore"
	"github.com/cloudwall/serenity-mdrecorder/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/recorder.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting snapshotd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := tickstore.NewPgStore(db, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure tickstore schema", "error", err)
		os.Exit(1)
	}

	client := exchange.NewClient(
		cfg.Exchange.RestURL,
		exchange.WithLogger(logger),
		exchange.WithTimeout(cfg.Exchange.Timeout),
		exchange.WithRetries(cfg.Exchange.MaxRetries, time.Second),
		exchange.WithRateLimit(cfg.Exchange.RateLimit, cfg.Exchange.RateBurst),
	)

	reg := metrics.NewRegistry()
	handler := newStoreHandler(store, reg, logger)

	pollCfg := poller.Config{
		Interval:    cfg.Snapshots.Interval,
		Concurrency: cfg.Snapshots.Concurrency,
		Timeout:     cfg.Snapshots.Timeout,
	}
	p := poller.New(pollCfg, client, cfg.Exchange.Products, handler, logger)

	healthServer := startHealthServer(cfg.Metrics, reg, p, logger)

	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	logger.Info("snapshotd running",
		"instance_id", cfg.Instance.ID,
		"interval", cfg.Snapshots.Interval,
		"products", cfg.Exchange.Products,
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	p.Stop(shutdownCtx)
	healthServer.Shutdown(shutdownCtx)

	logger.Info("snapshotd stopped")
}

// storeHandler accumulates the current day's snaps per product and
// writes the cumulative set as a new partition version on every snap.
// Versions replace the partition wholesale, so each insert must carry
// the whole day so far.
type storeHandler struct {
	store  tickstore.Tickstore
	reg    *metrics.Registry
	logger *slog.Logger

	mu   sync.Mutex
	day  time.Time
	rows map[string][]tickstore.TickRow
}

func newStoreHandler(store tickstore.Tickstore, reg *metrics.Registry, logger *slog.Logger) *storeHandler {
	return &storeHandler{
		store:  store,
		reg:    reg,
		logger: logger,
		rows:   make(map[string][]tickstore.TickRow),
	}
}

func (h *storeHandler) HandleSnap(snap model.TickerSnap) error {
	day := tickstore.DateOf(snap.SnappedAt)

	h.mu.Lock()
	if !day.Equal(h.day) {
		h.day = day
		h.rows = make(map[string][]tickstore.TickRow)
	}
	h.rows[snap.ProductID] = append(h.rows[snap.ProductID], tickstore.TickRow{
		Time:    snap.SnappedAt,
		TradeID: snap.TradeID,
		Size:    snap.Size,
		Price:   snap.Price,
		Bid:     snap.Bid,
		Ask:     snap.Ask,
	})
	rows := make([]tickstore.TickRow, len(h.rows[snap.ProductID]))
	copy(rows, h.rows[snap.ProductID])
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ts := tickstore.NewBiTimestamp(day)
	if err := h.store.Insert(ctx, tickstore.DatasetSnaps, snap.ProductID, ts, rows); err != nil {
		h.reg.SnapErrors.WithLabelValues(snap.ProductID).Inc()
		return err
	}

	h.reg.Snaps.WithLabelValues(snap.ProductID).Inc()
	return nil
}

func startHealthServer(cfg config.MetricsConfig, reg *metrics.Registry, p *poller.Poller, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, reg.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := p.Stats()
		status := "healthy"
		if stats.Cycles > 0 && stats.Snaps == 0 {
			status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": status,
			"poller": stats,
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	return server
}
