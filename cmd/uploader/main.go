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
	"github.com/cloudwall/serenity-mdrecorder/internal/journal"
	"github.com/cloudwall/serenity-mdrecorder/internal/metrics"
	"github.com/cloudwall/serenity-mdrecorder/internal/scheduler"
	"github.com/cloudwall/serenity-mdrecorder/internal/tickstore"
	"github.com/cloudwall/serenity-mdrecorder/internal/uploader"
	"github.com/cloudwall/serenity-mdrecorder/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/recorder.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single upload and exit")
	dateStr := flag.String("date", "", "UTC date to upload (YYYY-MM-DD, default: yesterday, -once only)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting uploader",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"once", *once,
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

	jrnl, err := journal.New(cfg.Journal.BasePath, cfg.Journal.MaxSize)
	if err != nil {
		logger.Error("failed to open journal", "error", err)
		os.Exit(1)
	}

	upCfg := uploader.DefaultConfig()
	upCfg.RetentionDays = cfg.Journal.RetentionDays
	up := uploader.New(upCfg, jrnl, store, logger)

	if *once {
		date, err := resolveDate(*dateStr)
		if err != nil {
			logger.Error("invalid date", "error", err)
			os.Exit(1)
		}
		rows, err := up.UploadDate(ctx, date)
		if err != nil {
			logger.Error("upload failed", "date", date.Format("2006-01-02"), "error", err)
			os.Exit(1)
		}
		logger.Info("upload complete", "date", date.Format("2006-01-02"), "rows", rows)
		return
	}

	// Scheduled mode: upload yesterday's journal daily, prune after.
	runAt, err := config.ParseRunAt(cfg.Uploader.RunAt)
	if err != nil {
		logger.Error("invalid uploader.run_at", "error", err)
		os.Exit(1)
	}
	hh := int(runAt / time.Hour)
	mm := int(runAt % time.Hour / time.Minute)
	ss := int(runAt % time.Minute / time.Second)

	reg := metrics.NewRegistry()
	sched := scheduler.New(logger)

	uploadJob := func(jctx context.Context) error {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		start := time.Now()
		rows, err := up.UploadDate(jctx, yesterday)
		if err != nil {
			return err
		}
		reg.UploadDuration.Observe(time.Since(start).Seconds())
		reg.RowsUploaded.Add(float64(rows))
		return nil
	}
	pruneJob := func(jctx context.Context) error {
		removed, err := up.PruneJournals()
		if err != nil {
			return err
		}
		reg.JournalsPruned.Add(float64(removed))
		logger.Info("prune complete", "removed", removed)
		return nil
	}

	if err := sched.Register("upload", scheduler.DailyAt(hh, mm, ss), uploadJob); err != nil {
		logger.Error("failed to register upload job", "error", err)
		os.Exit(1)
	}
	if err := sched.Register("prune", nil, pruneJob, "upload"); err != nil {
		logger.Error("failed to register prune job", "error", err)
		os.Exit(1)
	}

	healthServer := startHealthServer(cfg.Metrics, reg, sched, logger)

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("uploader running",
		"instance_id", cfg.Instance.ID,
		"run_at", cfg.Uploader.RunAt,
		"retention_days", cfg.Journal.RetentionDays,
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	sched.Stop(shutdownCtx)
	healthServer.Shutdown(shutdownCtx)

	logger.Info("uploader stopped")
}

// resolveDate parses -date, defaulting to yesterday UTC.
func resolveDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC().AddDate(0, 0, -1), nil
	}
	return time.Parse("2006-01-02", s)
}

func startHealthServer(cfg config.MetricsConfig, reg *metrics.Registry, sched *scheduler.Scheduler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, reg.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := sched.Stats()
		status := "healthy"
		for _, js := range stats {
			if js.Failures > 0 && js.LastErr != "" {
				status = "degraded"
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": status,
			"jobs":   stats,
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
