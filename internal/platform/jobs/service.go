package jobs

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	JobCacheRetention = "directory_cache_retention"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type RunFunc func(context.Context) (any, error)

// Run is the outcome of the latest execution of one job type.
type Run struct {
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt,omitzero"`
	Details     any       `json:"details,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Service runs background maintenance on a single worker goroutine.
type Service struct {
	queue chan job
	now   func() time.Time

	mu   sync.Mutex
	last map[string]Run
}

type job struct {
	Type string
	Run  RunFunc
}

func New() *Service {
	return &Service{
		queue: make(chan job, 32),
		now:   time.Now,
		last:  map[string]Run{},
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
}

// Schedule enqueues run every interval until ctx ends. Non-positive intervals disable it.
func (s *Service) Schedule(ctx context.Context, jobType string, interval time.Duration, run RunFunc) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Enqueue(jobType, run)
			}
		}
	}()
}

func (s *Service) Enqueue(jobType string, run RunFunc) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// LastRuns lists the latest run per job type, sorted by type.
func (s *Service) LastRuns() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, 0, len(s.last))
	for _, run := range s.last {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	run := Run{Type: j.Type, Status: StatusRunning, StartedAt: s.now()}
	s.record(run)

	details, err := j.Run(ctx)
	run.Status = StatusCompleted
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
	}
	run.Details = details
	run.CompletedAt = s.now()
	s.record(run)
	return details, err
}

func (s *Service) record(run Run) {
	s.mu.Lock()
	s.last[run.Type] = run
	s.mu.Unlock()
}
