// Package dispatch runs webhook work off the request path on a fixed set of workers.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

type Job func(ctx context.Context)

type Queue struct {
	name    string
	jobs    chan Job
	workers int
	logger  *slog.Logger
}

// NewQueue buffers up to capacity pending jobs for workers goroutines.
func NewQueue(name string, workers, capacity int, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity < workers {
		capacity = workers
	}
	return &Queue{name: name, jobs: make(chan Job, capacity), workers: workers, logger: logger}
}

// Submit enqueues job without blocking and reports false when the queue is full.
func (q *Queue) Submit(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		if q.logger != nil {
			q.logger.Warn("dispatch queue full, dropping job", slog.String("queue", q.name))
		}
		return false
	}
}

// Run processes jobs until ctx is done, then waits for in-flight jobs to return.
func (q *Queue) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for range q.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-q.jobs:
					q.run(ctx, job)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func (q *Queue) run(ctx context.Context, job Job) {
	defer func() {
		if recovered := recover(); recovered != nil && q.logger != nil {
			q.logger.Error("dispatch job panicked", slog.String("queue", q.name), slog.Any("panic", recovered))
		}
	}()
	job(ctx)
}
