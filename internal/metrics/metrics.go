// Package metrics exposes Prometheus instrumentation for the recorder
// processes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the recorder.
type Registry struct {
	reg *prometheus.Registry

	// Feed metrics
	FeedMessages   prometheus.Counter
	FeedReconnects prometheus.Counter
	FeedGaps       prometheus.Counter

	// Router metrics
	TradesRouted prometheus.Counter
	ParseErrors  prometheus.Counter

	// Writer metrics
	DBInserts   prometheus.Counter
	DBConflicts prometheus.Counter
	DBErrors    prometheus.Counter

	// Journal metrics
	JournalRecords prometheus.Counter
	JournalErrors  prometheus.Counter

	// Poller metrics
	Snaps      *prometheus.CounterVec
	SnapErrors *prometheus.CounterVec

	// Uploader metrics
	RowsUploaded   prometheus.Counter
	UploadDuration prometheus.Histogram
	JournalsPruned prometheus.Counter
}

// NewRegistry creates a registry with all recorder metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		FeedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_feed_messages_total",
			Help: "Total websocket messages received",
		}),

		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_feed_reconnects_total",
			Help: "Total websocket reconnections",
		}),

		FeedGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_feed_gaps_total",
			Help: "Trade ID gaps detected on the feed",
		}),

		TradesRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_trades_routed_total",
			Help: "Trades decoded and routed to the writers",
		}),

		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_parse_errors_total",
			Help: "Feed messages that failed to decode",
		}),

		DBInserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_db_inserts_total",
			Help: "Trade rows inserted into the database",
		}),

		DBConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_db_conflicts_total",
			Help: "Trade rows skipped as duplicates",
		}),

		DBErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_db_errors_total",
			Help: "Failed database batch flushes",
		}),

		JournalRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_journal_records_total",
			Help: "Trade records appended to the binary journal",
		}),

		JournalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_journal_errors_total",
			Help: "Journal append, sync, or rollover failures",
		}),

		Snaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdrecorder_snaps_total",
			Help: "Ticker snapshots fetched per product",
		}, []string{"product"}),

		SnapErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdrecorder_snap_errors_total",
			Help: "Failed ticker snapshots per product",
		}, []string{"product"}),

		RowsUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_rows_uploaded_total",
			Help: "Journal rows uploaded to the tickstore",
		}),

		UploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mdrecorder_upload_duration_seconds",
			Help:    "Duration of daily journal uploads",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),

		JournalsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdrecorder_journals_pruned_total",
			Help: "Journal date directories removed by retention",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.FeedMessages,
		r.FeedReconnects,
		r.FeedGaps,
		r.TradesRouted,
		r.ParseErrors,
		r.DBInserts,
		r.DBConflicts,
		r.DBErrors,
		r.JournalRecords,
		r.JournalErrors,
		r.Snaps,
		r.SnapErrors,
		r.RowsUploaded,
		r.UploadDuration,
		r.JournalsPruned,
	)

	return r
}

// Handler returns the scrape endpoint handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
