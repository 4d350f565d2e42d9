package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()

	r.FeedMessages.Inc()
	r.FeedGaps.Add(3)
	r.Snaps.WithLabelValues("BTC-USD").Inc()
	r.RowsUploaded.Add(1440)
	r.UploadDuration.Observe(2.5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"mdrecorder_feed_messages_total 1",
		"mdrecorder_feed_gaps_total 3",
		`mdrecorder_snaps_total{product="BTC-USD"} 1`,
		"mdrecorder_rows_uploaded_total 1440",
		"mdrecorder_upload_duration_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestRegistry_IsolatedRegistries(t *testing.T) {
	// Two registries must not collide; each carries its own collectors.
	a := NewRegistry()
	b := NewRegistry()

	a.FeedMessages.Inc()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), "mdrecorder_feed_messages_total 1") {
		t.Error("registry b sees registry a's counter")
	}
}
