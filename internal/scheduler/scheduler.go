package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dominikbraun/graph"
)

// JobFunc is the unit of scheduled work.
type JobFunc func(ctx context.Context) error

// JobStats holds per-job run counters.
type JobStats struct {
	Runs     int64
	Failures int64
	Skips    int64
	LastRun  time.Time
	LastErr  string
}

type job struct {
	name    string
	trigger Trigger
	fn      JobFunc
	stats   JobStats
}

// Scheduler runs registered jobs on their triggers.
type Scheduler struct {
	logger *slog.Logger

	mu   sync.Mutex
	g    graph.Graph[string, string]
	jobs map[string]*job

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	now func() time.Time
}

// New creates an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger: logger,
		g:      graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
		jobs:   make(map[string]*job),
		now:    time.Now,
	}
}

// Register adds a job. A nil trigger means the job only runs as a
// dependent of its parents. An edge that would close a cycle is
// rejected.
func (s *Scheduler) Register(name string, trigger Trigger, fn JobFunc, deps ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler: register %s: already started", name)
	}
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("scheduler: duplicate job %s", name)
	}

	if err := s.g.AddVertex(name); err != nil {
		return fmt.Errorf("scheduler: add %s: %w", name, err)
	}
	for _, dep := range deps {
		if _, ok := s.jobs[dep]; !ok {
			return fmt.Errorf("scheduler: job %s depends on unknown job %s", name, dep)
		}
		if err := s.g.AddEdge(dep, name); err != nil {
			return fmt.Errorf("scheduler: edge %s -> %s: %w", dep, name, err)
		}
	}

	s.jobs[name] = &job{name: name, trigger: trigger, fn: fn}
	return nil
}

// Start launches a timer goroutine per triggered job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler: already started")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, j := range s.jobs {
		if j.trigger == nil {
			continue
		}
		s.wg.Add(1)
		go s.runTimer(j.name, j.trigger)
	}

	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop cancels timers and waits for running jobs.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of per-job counters.
func (s *Scheduler) Stats() map[string]JobStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]JobStats, len(s.jobs))
	for name, j := range s.jobs {
		out[name] = j.stats
	}
	return out
}

// RunNow fires root's job chain immediately, outside its trigger.
func (s *Scheduler) RunNow(ctx context.Context, root string) error {
	s.mu.Lock()
	_, ok := s.jobs[root]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown job %s", root)
	}
	s.runFrom(ctx, root)
	return nil
}

// runTimer sleeps until each fire time and runs the job chain.
func (s *Scheduler) runTimer(name string, trigger Trigger) {
	defer s.wg.Done()

	for {
		next := trigger.Next(s.now())
		wait := time.Until(next)

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
			s.runFrom(s.ctx, name)
		}
	}
}

// runFrom runs root and its dependents in topological order. A job is
// skipped when any affected parent failed or was skipped.
func (s *Scheduler) runFrom(ctx context.Context, root string) {
	affected, order, err := s.plan(root)
	if err != nil {
		s.logger.Error("job plan failed", "root", root, "error", err)
		return
	}

	failed := make(map[string]bool)

	for _, name := range order {
		if !affected[name] {
			continue
		}
		if s.parentFailed(name, failed, affected) {
			failed[name] = true // Skipped jobs also poison their dependents.
			s.recordSkip(name)
			s.logger.Warn("skipping job, upstream failed", "job", name, "root", root)
			continue
		}

		if err := s.runJob(ctx, name); err != nil {
			failed[name] = true
			s.logger.Error("job failed", "job", name, "error", err)
		}
	}
}

// plan returns the set of jobs reachable from root and a topological
// order of the whole graph.
func (s *Scheduler) plan(root string) (map[string]bool, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	adj, err := s.g.AdjacencyMap()
	if err != nil {
		return nil, nil, err
	}

	affected := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range adj[cur] {
			if !affected[next] {
				affected[next] = true
				queue = append(queue, next)
			}
		}
	}

	order, err := graph.TopologicalSort(s.g)
	if err != nil {
		return nil, nil, err
	}
	return affected, order, nil
}

// parentFailed reports whether any affected predecessor of name failed.
func (s *Scheduler) parentFailed(name string, failed, affected map[string]bool) bool {
	s.mu.Lock()
	adj, err := s.g.AdjacencyMap()
	s.mu.Unlock()
	if err != nil {
		return false
	}

	for parent, edges := range adj {
		if _, ok := edges[name]; !ok {
			continue
		}
		if affected[parent] && failed[parent] {
			return true
		}
	}
	return false
}

func (s *Scheduler) runJob(ctx context.Context, name string) error {
	s.mu.Lock()
	j := s.jobs[name]
	s.mu.Unlock()

	start := s.now()
	err := j.fn(ctx)

	s.mu.Lock()
	j.stats.Runs++
	j.stats.LastRun = start
	if err != nil {
		j.stats.Failures++
		j.stats.LastErr = err.Error()
	} else {
		j.stats.LastErr = ""
	}
	s.mu.Unlock()

	if err == nil {
		s.logger.Info("job complete", "job", name, "duration", time.Since(start))
	}
	return err
}

func (s *Scheduler) recordSkip(name string) {
	s.mu.Lock()
	s.jobs[name].stats.Skips++
	s.mu.Unlock()
}
