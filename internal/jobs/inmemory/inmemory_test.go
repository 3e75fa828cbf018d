package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/carteira/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.FetchHistoryJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached %s, last state %+v", jobID, want, job)
	return nil
}

func newTestQueue(store *Store) *Queue {
	q := NewQueue(10, store)
	q.backoff = func(int) time.Duration { return time.Millisecond }
	return q
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := newTestQueue(store)
	ctx := context.Background()

	var seen atomic.Value
	err := q.Start(ctx, func(ctx context.Context, job *jobs.FetchHistoryJob) error {
		seen.Store(job.Symbol)
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer q.Close()

	job := &jobs.FetchHistoryJob{Symbol: "PETR4", Range: "max"}
	if err := q.PublishFetchHistory(ctx, job); err != nil {
		t.Fatalf("PublishFetchHistory() error = %v", err)
	}
	if job.JobID == "" || job.MaxRetries != jobs.DefaultMaxRetries {
		t.Errorf("defaults not applied: %+v", job)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Errorf("timestamps not set: %+v", done)
	}
	if seen.Load() != "PETR4" {
		t.Errorf("handler saw %v", seen.Load())
	}
}

func TestQueue_RetriesThenFails(t *testing.T) {
	store := NewStore()
	q := newTestQueue(store)
	ctx := context.Background()

	var calls int32
	q.Start(ctx, func(ctx context.Context, job *jobs.FetchHistoryJob) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("yahoo down")
	})
	defer q.Close()

	job := &jobs.FetchHistoryJob{Symbol: "VALE3", MaxRetries: 2}
	if err := q.PublishFetchHistory(ctx, job); err != nil {
		t.Fatalf("PublishFetchHistory() error = %v", err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", failed.RetryCount)
	}
	if failed.Error != "yahoo down" {
		t.Errorf("Error = %q", failed.Error)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("handler calls = %d, want 3", got)
	}
}

func TestQueue_RetryThenSucceed(t *testing.T) {
	store := NewStore()
	q := newTestQueue(store)
	ctx := context.Background()

	var calls int32
	q.Start(ctx, func(ctx context.Context, job *jobs.FetchHistoryJob) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	})
	defer q.Close()

	job := &jobs.FetchHistoryJob{Symbol: "ITUB4"}
	q.PublishFetchHistory(ctx, job)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.RetryCount != 1 || done.Error != "" {
		t.Errorf("unexpected final state %+v", done)
	}
}

func TestQueue_Closed(t *testing.T) {
	q := newTestQueue(NewStore())
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := q.PublishFetchHistory(context.Background(), &jobs.FetchHistoryJob{Symbol: "X"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("PublishFetchHistory() error = %v, want ErrQueueClosed", err)
	}
	if err := q.Start(context.Background(), nil); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Start() error = %v, want ErrQueueClosed", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	for i, sym := range []string{"A", "B", "A"} {
		s.SaveJob(ctx, &jobs.FetchHistoryJob{
			JobID:     string(rune('1' + i)),
			Symbol:    sym,
			Status:    jobs.JobStatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	all, _ := s.ListJobs(ctx, jobs.JobFilter{})
	if len(all) != 3 || all[0].JobID != "3" {
		t.Errorf("expected newest first, got %v", all)
	}

	onlyA, _ := s.ListJobs(ctx, jobs.JobFilter{Symbol: "A", Limit: 1})
	if len(onlyA) != 1 || onlyA[0].JobID != "3" {
		t.Errorf("filtered list = %v", onlyA)
	}

	past, _ := s.ListJobs(ctx, jobs.JobFilter{Offset: 5})
	if len(past) != 0 {
		t.Errorf("offset past end returned %v", past)
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob() error = %v, want ErrJobNotFound", err)
	}
}
