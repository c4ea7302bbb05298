package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestTwoLevelManager_Process(t *testing.T) {
	var mu sync.Mutex
	handled := map[string]bool{}

	m := NewTwoLevelManager(TwoLevelConfig[int, string]{
		ExpandWorkers: 2,
		HandleWorkers: 3,
		Expand: func(ctx context.Context, page int) ([]string, error) {
			if page == 3 {
				return nil, errors.New("page unavailable")
			}
			return []string{fmt.Sprintf("p%d-a", page), fmt.Sprintf("p%d-b", page)}, nil
		},
		Handle: func(ctx context.Context, job string) error {
			mu.Lock()
			defer mu.Unlock()
			handled[job] = true
			if job == "p1-b" {
				return errors.New("bad job")
			}
			return nil
		},
	})

	stats, err := m.Process(context.Background(), []int{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if stats.Sources != 4 || stats.SourcesFailed != 1 {
		t.Errorf("sources = %d failed = %d, want 4 and 1", stats.Sources, stats.SourcesFailed)
	}
	if stats.Jobs.Succeeded != 5 || stats.Jobs.Failed != 1 {
		t.Errorf("jobs = %+v, want 5 succeeded and 1 failed", stats.Jobs)
	}
	if len(handled) != 6 {
		t.Errorf("handled %d jobs, want 6", len(handled))
	}
}

func TestTwoLevelManager_AllSourcesFail(t *testing.T) {
	m := NewTwoLevelManager(TwoLevelConfig[string, string]{
		Expand: func(ctx context.Context, s string) ([]string, error) { return nil, errors.New("down") },
		Handle: func(ctx context.Context, job string) error { return nil },
	})

	if _, err := m.Process(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error when every source fails")
	}
}

func TestTwoLevelManager_NoSources(t *testing.T) {
	m := NewTwoLevelManager(TwoLevelConfig[string, string]{
		Expand: func(ctx context.Context, s string) ([]string, error) { return nil, nil },
		Handle: func(ctx context.Context, job string) error { return nil },
	})

	stats, err := m.Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if stats.Jobs.Total() != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
