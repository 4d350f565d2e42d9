package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestEvery_Next(t *testing.T) {
	now := time.Date(2019, 10, 7, 12, 0, 0, 0, time.UTC)
	next := Every(time.Minute).Next(now)
	if want := now.Add(time.Minute); !next.Equal(want) {
		t.Errorf("Next() = %v, want %v", next, want)
	}
}

func TestDailyAt_Next(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before fire time fires today",
			now:  time.Date(2019, 10, 7, 0, 10, 0, 0, time.UTC),
			want: time.Date(2019, 10, 7, 0, 15, 0, 0, time.UTC),
		},
		{
			name: "after fire time fires tomorrow",
			now:  time.Date(2019, 10, 7, 0, 20, 0, 0, time.UTC),
			want: time.Date(2019, 10, 8, 0, 15, 0, 0, time.UTC),
		},
		{
			name: "exactly at fire time fires tomorrow",
			now:  time.Date(2019, 10, 7, 0, 15, 0, 0, time.UTC),
			want: time.Date(2019, 10, 8, 0, 15, 0, 0, time.UTC),
		},
	}

	trig := DailyAt(0, 15, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trig.Next(tt.now); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestScheduler_RejectsSelfDependency(t *testing.T) {
	s := New(quietLogger())
	noop := func(ctx context.Context) error { return nil }

	if err := s.Register("a", nil, noop, "a"); err == nil {
		t.Fatal("self-dependency accepted, want error")
	}
}

func TestScheduler_RejectsUnknownDep(t *testing.T) {
	s := New(quietLogger())
	noop := func(ctx context.Context) error { return nil }

	if err := s.Register("a", nil, noop, "missing"); err == nil {
		t.Fatal("unknown dependency accepted, want error")
	}
}

func TestScheduler_RejectsDuplicate(t *testing.T) {
	s := New(quietLogger())
	noop := func(ctx context.Context) error { return nil }

	if err := s.Register("a", nil, noop); err != nil {
		t.Fatalf("Register(a) error = %v", err)
	}
	if err := s.Register("a", nil, noop); err == nil {
		t.Fatal("duplicate job accepted, want error")
	}
}

func TestScheduler_RunNow_TopologicalOrder(t *testing.T) {
	s := New(quietLogger())

	var mu sync.Mutex
	var ran []string
	record := func(name string) JobFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		}
	}

	if err := s.Register("upload", nil, record("upload")); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("prune", nil, record("prune"), "upload"); err != nil {
		t.Fatal(err)
	}

	if err := s.RunNow(context.Background(), "upload"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ran) != 2 || ran[0] != "upload" || ran[1] != "prune" {
		t.Errorf("ran = %v, want [upload prune]", ran)
	}
}

func TestScheduler_SkipsDependentsOfFailedJob(t *testing.T) {
	s := New(quietLogger())

	var mu sync.Mutex
	var ran []string

	fail := func(ctx context.Context) error { return errors.New("boom") }
	record := func(name string) JobFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		}
	}

	if err := s.Register("upload", nil, fail); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("prune", nil, record("prune"), "upload"); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("report", nil, record("report"), "prune"); err != nil {
		t.Fatal(err)
	}

	if err := s.RunNow(context.Background(), "upload"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}

	mu.Lock()
	got := len(ran)
	mu.Unlock()
	if got != 0 {
		t.Errorf("dependents ran = %v, want none", ran)
	}

	stats := s.Stats()
	if stats["upload"].Failures != 1 {
		t.Errorf("upload Failures = %d, want 1", stats["upload"].Failures)
	}
	if stats["prune"].Skips != 1 {
		t.Errorf("prune Skips = %d, want 1", stats["prune"].Skips)
	}
	if stats["report"].Skips != 1 {
		t.Errorf("report Skips = %d, want 1", stats["report"].Skips)
	}
}

func TestScheduler_RunNow_OnlyAffectedSubgraph(t *testing.T) {
	s := New(quietLogger())

	var mu sync.Mutex
	var ran []string
	record := func(name string) JobFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		}
	}

	if err := s.Register("a", nil, record("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("b", nil, record("b")); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("c", nil, record("c"), "b"); err != nil {
		t.Fatal(err)
	}

	if err := s.RunNow(context.Background(), "b"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, name := range ran {
		if name == "a" {
			t.Error("unrelated job a ran")
		}
	}
	if len(ran) != 2 {
		t.Errorf("ran = %v, want [b c]", ran)
	}
}

func TestScheduler_TriggeredJobRuns(t *testing.T) {
	s := New(quietLogger())
	s.now = time.Now

	var runs sync.WaitGroup
	runs.Add(1)
	var once sync.Once
	fn := func(ctx context.Context) error {
		once.Do(runs.Done)
		return nil
	}

	if err := s.Register("tick", Every(20*time.Millisecond), fn); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	done := make(chan struct{})
	go func() {
		runs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("triggered job did not run")
	}
}

func TestScheduler_RegisterAfterStart(t *testing.T) {
	s := New(quietLogger())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	if err := s.Register("late", nil, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("Register after Start accepted, want error")
	}
}
