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
	"syscall"
	"time"

	"github.com/cloudwall/serenity-mdrecorder/internal/config"
	"github.com/cloudwall/serenity-mdrecorder/internal/database"
	"github.com/cloudwall/serenity-mdrecorder/internal/feed"
	"github.com/cloudwall/serenity-mdrecorder/internal/journal"
	"github.com/cloudwall/serenity-mdrecorder/internal/metrics"
	"github.com/cloudwall/serenity-mdrecorder/internal/router"
	"github.com/cloudwall/serenity-mdrecorder/internal/version"
	"github.com/cloudwall/serenity-mdrecorder/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/recorder.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting recorder",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.Exchange.WSURL,
		"products", cfg.Exchange.Products,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("database connected")

	// Binary journal
	jrnl, err := journal.New(cfg.Journal.BasePath, cfg.Journal.MaxSize)
	if err != nil {
		logger.Error("failed to open journal", "error", err)
		os.Exit(1)
	}

	// Feed subscriber
	subCfg := feed.DefaultSubscriberConfig()
	subCfg.URL = cfg.Exchange.WSURL
	subCfg.Products = cfg.Exchange.Products
	subCfg.ReconnectBaseDelay = cfg.Feed.ReconnectBaseDelay
	subCfg.ReconnectMaxDelay = cfg.Feed.ReconnectMaxDelay
	subCfg.PingTimeout = cfg.Feed.PingTimeout
	subCfg.WriteTimeout = cfg.Feed.WriteTimeout
	subCfg.BufferSize = cfg.Feed.BufferSize

	sub := feed.NewSubscriber(subCfg, logger)

	// Message router
	routerCfg := router.DefaultRouterConfig()
	if cfg.Writers.BufferSize > 0 {
		routerCfg.TradeBufferSize = cfg.Writers.BufferSize
		routerCfg.JournalBufferSize = cfg.Writers.BufferSize
	}
	rtr := router.NewRouter(routerCfg, sub.Messages(), logger)

	// Writers
	writerCfg := writer.DefaultWriterConfig()
	if cfg.Writers.BatchSize > 0 {
		writerCfg.BatchSize = cfg.Writers.BatchSize
	}
	if cfg.Writers.FlushInterval > 0 {
		writerCfg.FlushInterval = cfg.Writers.FlushInterval
	}

	tradeWriter := writer.NewTradeWriter(writerCfg, rtr.Trades(), db, logger)
	journalWriter := writer.NewJournalWriter(writerCfg, rtr.Journal(), jrnl, logger)

	if err := tradeWriter.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure trades schema", "error", err)
		os.Exit(1)
	}

	// Metrics and health server
	reg := metrics.NewRegistry()
	healthServer := startHealthServer(cfg.Metrics, reg, sub, rtr, tradeWriter, journalWriter, db, logger)

	// Bridge component stats into Prometheus counters
	go runMetricsBridge(ctx, reg, sub, rtr, tradeWriter, journalWriter)

	// Start the pipeline back to front so nothing drops on the floor
	if err := journalWriter.Start(ctx); err != nil {
		logger.Error("failed to start journal writer", "error", err)
		os.Exit(1)
	}
	if err := tradeWriter.Start(ctx); err != nil {
		logger.Error("failed to start trade writer", "error", err)
		os.Exit(1)
	}
	if err := rtr.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}
	if err := sub.Start(ctx); err != nil {
		logger.Error("failed to start feed subscriber", "error", err)
		os.Exit(1)
	}

	logger.Info("recorder running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop front to back so in-flight trades drain into the journal and DB
	sub.Stop(shutdownCtx)
	rtr.Stop(shutdownCtx)
	tradeWriter.Stop(shutdownCtx)
	journalWriter.Stop(shutdownCtx)
	healthServer.Shutdown(shutdownCtx)

	logger.Info("recorder stopped")
}

// startHealthServer serves /health, /metrics, and component stats.
func startHealthServer(
	cfg config.MetricsConfig,
	reg *metrics.Registry,
	sub *feed.Subscriber,
	rtr router.Router,
	tw *writer.TradeWriter,
	jw *writer.JournalWriter,
	db interface {
		Ping(ctx context.Context) error
	},
	logger *slog.Logger,
) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, reg.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}

		feedStats := sub.Stats()
		health.Components["feed"] = feedStats
		if !feedStats.Connected {
			health.Status = "degraded"
		}
		health.Components["router"] = rtr.Stats()
		health.Components["trade_writer"] = tw.Stats()
		health.Components["journal_writer"] = jw.Stats()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
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

// runMetricsBridge samples component stats and feeds the deltas into
// the Prometheus counters.
func runMetricsBridge(
	ctx context.Context,
	reg *metrics.Registry,
	sub *feed.Subscriber,
	rtr router.Router,
	tw *writer.TradeWriter,
	jw *writer.JournalWriter,
) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var prevFeed feed.SubscriberStats
	var prevRouter router.RouterStats
	var prevTW writer.WriterMetrics
	var prevJW writer.JournalWriterMetrics

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fs := sub.Stats()
			reg.FeedMessages.Add(float64(fs.Messages - prevFeed.Messages))
			reg.FeedReconnects.Add(float64(fs.Reconnects - prevFeed.Reconnects))
			reg.FeedGaps.Add(float64(fs.SeqGaps - prevFeed.SeqGaps))
			prevFeed = fs

			rs := rtr.Stats()
			reg.TradesRouted.Add(float64(rs.MessagesRouted - prevRouter.MessagesRouted))
			reg.ParseErrors.Add(float64(rs.ParseErrors - prevRouter.ParseErrors))
			prevRouter = rs

			ts := tw.Stats()
			reg.DBInserts.Add(float64(ts.Inserts - prevTW.Inserts))
			reg.DBConflicts.Add(float64(ts.Conflicts - prevTW.Conflicts))
			reg.DBErrors.Add(float64(ts.Errors - prevTW.Errors))
			prevTW = ts

			js := jw.Stats()
			reg.JournalRecords.Add(float64(js.Records - prevJW.Records))
			reg.JournalErrors.Add(float64(js.Errors - prevJW.Errors))
			prevJW = js
		}
	}
}
