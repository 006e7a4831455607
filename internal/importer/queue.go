package importer

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Queue feeds pending jobs to a pool of workers. A job id is held active
// from Enqueue until its run finishes, so the same job can never run twice
// concurrently.
type Queue struct {
	orch *Orchestrator
	jobs chan string

	mu     sync.Mutex
	active map[string]bool
}

func NewQueue(orch *Orchestrator, buffer int) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	return &Queue{
		orch:   orch,
		jobs:   make(chan string, buffer),
		active: make(map[string]bool),
	}
}

// Enqueue schedules a job for processing. It rejects jobs that are already
// queued or running, and reports backpressure instead of blocking the caller.
func (q *Queue) Enqueue(jobID string) error {
	q.mu.Lock()
	if q.active[jobID] {
		q.mu.Unlock()
		return eris.Errorf("importer: job %s already scheduled", jobID)
	}
	q.active[jobID] = true
	q.mu.Unlock()

	select {
	case q.jobs <- jobID:
		return nil
	default:
		q.release(jobID)
		return eris.New("importer: queue is full")
	}
}

// Start runs the worker pool until ctx is cancelled, then waits for in-flight
// jobs to finish.
func (q *Queue) Start(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case jobID := <-q.jobs:
					q.run(ctx, jobID)
				}
			}
		})
	}
	return g.Wait()
}

func (q *Queue) run(ctx context.Context, jobID string) {
	defer q.release(jobID)
	if err := q.orch.Run(ctx, jobID); err != nil {
		zap.L().Error("import job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (q *Queue) release(jobID string) {
	q.mu.Lock()
	delete(q.active, jobID)
	q.mu.Unlock()
}
