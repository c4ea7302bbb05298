package worker

import (
	"context"
	"fmt"
	"sync"

	"newsblog/pkg/logging"
)

// Handler processes one job.
type Handler[T any] func(ctx context.Context, job T) error

// Stats counts handled jobs.
type Stats struct {
	Succeeded uint64
	Failed    uint64
}

// Total is Succeeded + Failed.
func (s Stats) Total() uint64 {
	return s.Succeeded + s.Failed
}

// Manager manages workers and distributes jobs to them
type Manager[T any] struct {
	workerCount int
	handle      Handler[T]
	describe    func(T) string
}

// NewManager creates a manager running handle on workerCount goroutines.
// describe labels a job in error logs; nil uses fmt's %v.
func NewManager[T any](workerCount int, handle Handler[T], describe func(T) string) *Manager[T] {
	if workerCount < 1 {
		workerCount = 1
	}
	if describe == nil {
		describe = func(job T) string { return fmt.Sprint(job) }
	}
	return &Manager[T]{
		workerCount: workerCount,
		handle:      handle,
		describe:    describe,
	}
}

// Process distributes jobs to workers and processes them concurrently.
// It returns an error only when every job failed or ctx was cancelled.
func (m *Manager[T]) Process(ctx context.Context, jobs []T) (Stats, error) {
	jobChan := make(chan T, len(jobs))
	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)

	type result struct {
		workerID int
		job      T
		err      error
	}
	resultsChan := make(chan result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < m.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				if ctx.Err() != nil {
					resultsChan <- result{workerID: workerID, job: job, err: ctx.Err()}
					continue
				}
				resultsChan <- result{workerID: workerID, job: job, err: m.handle(ctx, job)}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Single reader, so the counters need no locking
	var stats Stats
	for res := range resultsChan {
		if res.err == nil {
			stats.Succeeded++
			if stats.Succeeded%100 == 0 {
				logging.Info().Uint64("succeeded", stats.Succeeded).Uint64("failed", stats.Failed).Msg("progress")
			}
			continue
		}
		stats.Failed++
		logging.Warn().Err(res.err).Int("worker", res.workerID).Str("job", m.describe(res.job)).Msg("job failed")
	}

	logging.Info().
		Uint64("succeeded", stats.Succeeded).
		Uint64("failed", stats.Failed).
		Int("total", len(jobs)).
		Msg("completed")

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.Failed > 0 && stats.Succeeded == 0 {
		return stats, fmt.Errorf("all %d jobs failed to process", stats.Failed)
	}
	return stats, nil
}
