package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestManager_Process(t *testing.T) {
	var calls atomic.Int64
	m := NewManager(4, func(ctx context.Context, n int) error {
		calls.Add(1)
		if n%5 == 0 {
			return errors.New("multiple of five")
		}
		return nil
	}, nil)

	jobs := make([]int, 20)
	for i := range jobs {
		jobs[i] = i + 1
	}

	stats, err := m.Process(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if calls.Load() != 20 {
		t.Errorf("handler called %d times, want 20", calls.Load())
	}
	if stats.Succeeded != 16 || stats.Failed != 4 {
		t.Errorf("stats = %+v, want 16 succeeded and 4 failed", stats)
	}
}

func TestManager_AllFail(t *testing.T) {
	m := NewManager(2, func(ctx context.Context, s string) error {
		return errors.New("nope")
	}, strings.ToUpper)

	stats, err := m.Process(context.Background(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error when every job fails")
	}
	if stats.Failed != 3 {
		t.Errorf("failed = %d, want 3", stats.Failed)
	}
}

func TestManager_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	m := NewManager(1, func(ctx context.Context, n int) error {
		calls.Add(1)
		return nil
	}, nil)

	_, err := m.Process(ctx, []int{1, 2, 3})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls.Load() != 0 {
		t.Errorf("handler ran %d times after cancellation", calls.Load())
	}
}

func TestWorker_FetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/u5" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`<html><head><title>Article 5</title></head><body><article><h1>Article 5</h1><p>Content 5 is long enough to be a paragraph of its own.</p></article></body></html>`))
	}))
	defer server.Close()

	w := NewWorker(nil, 0)
	page, err := w.FetchPage(context.Background(), server.URL+"/u5")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.Title != "Article 5" {
		t.Errorf("title = %q", page.Title)
	}
	if !strings.Contains(page.Text, "Content 5") {
		t.Errorf("text = %q", page.Text)
	}

	if _, err := w.FetchPage(context.Background(), server.URL+"/missing"); err == nil {
		t.Error("expected error for 404 page")
	}
}

func TestWorker_FetchPage_BrokenPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("not really a pdf"))
	}))
	defer server.Close()

	w := NewWorker(nil, 0)
	if _, err := w.FetchPage(context.Background(), server.URL+"/paper.pdf"); err == nil {
		t.Error("expected error for unreadable PDF")
	}
}
