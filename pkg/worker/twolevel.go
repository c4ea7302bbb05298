package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"newsblog/pkg/logging"
)

// Expander turns one source into many jobs (level 1).
type Expander[S, T any] func(ctx context.Context, source S) ([]T, error)

// TwoLevelStats counts both levels of a TwoLevelManager run.
type TwoLevelStats struct {
	Sources       uint64
	SourcesFailed uint64
	Jobs          Stats
}

// TwoLevelManager manages two levels of workers:
// Level 1 expands sources into jobs, level 2 handles the jobs.
type TwoLevelManager[S, T any] struct {
	expandWorkers int
	handleWorkers int
	expand        Expander[S, T]
	handle        Handler[T]
}

// TwoLevelConfig holds configuration for TwoLevelManager
type TwoLevelConfig[S, T any] struct {
	ExpandWorkers int
	HandleWorkers int
	Expand        Expander[S, T]
	Handle        Handler[T]
}

// NewTwoLevelManager creates a new two-level worker manager
func NewTwoLevelManager[S, T any](cfg TwoLevelConfig[S, T]) *TwoLevelManager[S, T] {
	if cfg.ExpandWorkers < 1 {
		cfg.ExpandWorkers = 1
	}
	if cfg.HandleWorkers < 1 {
		cfg.HandleWorkers = 1
	}
	return &TwoLevelManager[S, T]{
		expandWorkers: cfg.ExpandWorkers,
		handleWorkers: cfg.HandleWorkers,
		expand:        cfg.Expand,
		handle:        cfg.Handle,
	}
}

// Process runs both levels until every source is expanded and every job handled.
// A failing source is logged and skipped. The error is non-nil only on
// cancellation or when nothing at all succeeded.
func (m *TwoLevelManager[S, T]) Process(ctx context.Context, sources []S) (TwoLevelStats, error) {
	sourceChan := make(chan S, len(sources))
	for _, s := range sources {
		sourceChan <- s
	}
	close(sourceChan)

	jobChan := make(chan T, m.handleWorkers*2)

	var sourcesFailed, succeeded, failed atomic.Uint64

	// Level 2 starts first so level 1 never blocks on an unread channel
	var handleWg sync.WaitGroup
	for i := 0; i < m.handleWorkers; i++ {
		handleWg.Add(1)
		go func(workerID int) {
			defer handleWg.Done()
			for job := range jobChan {
				if err := m.handle(ctx, job); err != nil {
					failed.Add(1)
					logging.Warn().Err(err).Int("worker", workerID).Msg("job failed")
					continue
				}
				succeeded.Add(1)
			}
		}(i)
	}

	var expandWg sync.WaitGroup
	for i := 0; i < m.expandWorkers; i++ {
		expandWg.Add(1)
		go func(workerID int) {
			defer expandWg.Done()
			for source := range sourceChan {
				if ctx.Err() != nil {
					sourcesFailed.Add(1)
					continue
				}
				jobs, err := m.expand(ctx, source)
				if err != nil {
					sourcesFailed.Add(1)
					logging.Warn().Err(err).Int("worker", workerID).Str("source", fmt.Sprint(source)).Msg("source failed")
					continue
				}
				for _, job := range jobs {
					select {
					case jobChan <- job:
					case <-ctx.Done():
						return
					}
				}
			}
		}(i)
	}

	expandWg.Wait()
	close(jobChan)
	handleWg.Wait()

	stats := TwoLevelStats{
		Sources:       uint64(len(sources)),
		SourcesFailed: sourcesFailed.Load(),
		Jobs:          Stats{Succeeded: succeeded.Load(), Failed: failed.Load()},
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if len(sources) > 0 && stats.SourcesFailed == stats.Sources {
		return stats, fmt.Errorf("all %d sources failed", stats.Sources)
	}
	if stats.Jobs.Failed > 0 && stats.Jobs.Succeeded == 0 {
		return stats, fmt.Errorf("all %d jobs failed to process", stats.Jobs.Failed)
	}
	return stats, nil
}
