package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spendlens/spendlens/internal/domain"
	"github.com/spendlens/spendlens/internal/jobs"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestQueuePublishAndConsumeInOrder(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var order []string

	handler := func(ctx context.Context, job *jobs.UpdateModelJob) error {
		mu.Lock()
		order = append(order, job.JobID)
		mu.Unlock()
		return nil
	}
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, id := range []string{"j1", "j2", "j3"} {
		job := &jobs.UpdateModelJob{
			JobID:       id,
			UserID:      "u1",
			Transaction: domain.Transaction{UserID: "u1", Amount: 10, Type: domain.TypeDebit},
		}
		if err := q.PublishUpdateModel(ctx, job); err != nil {
			t.Fatalf("PublishUpdateModel(%s): %v", id, err)
		}
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	for i, want := range []string{"j1", "j2", "j3"} {
		if order[i] != want {
			t.Errorf("order[%d] = %s, want %s (single worker preserves publish order)", i, order[i], want)
		}
	}
}

func TestQueueStatusTransitions(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Start(ctx, func(ctx context.Context, job *jobs.UpdateModelJob) error {
		return nil
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.UpdateModelJob{UserID: "u1"}
	if err := q.PublishUpdateModel(ctx, job); err != nil {
		t.Fatalf("PublishUpdateModel: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("expected a generated job ID")
	}
	if job.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", job.MaxRetries)
	}

	waitFor(t, func() bool {
		saved, err := store.GetJob(ctx, job.JobID)
		return err == nil && saved.Status == jobs.JobStatusCompleted
	})

	saved, err := store.GetJob(ctx, job.JobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if saved.StartedAt == nil || saved.CompletedAt == nil {
		t.Errorf("timestamps not set: %+v", saved)
	}
	if saved.Error != "" {
		t.Errorf("Error = %q, want empty", saved.Error)
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	attempts := 0

	handler := func(ctx context.Context, job *jobs.UpdateModelJob) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient failure")
		}
		return nil
	}
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.UpdateModelJob{JobID: "retry-me", UserID: "u1", MaxRetries: 3}
	if err := q.PublishUpdateModel(ctx, job); err != nil {
		t.Fatalf("PublishUpdateModel: %v", err)
	}

	waitFor(t, func() bool {
		saved, err := store.GetJob(ctx, "retry-me")
		return err == nil && saved.Status == jobs.JobStatusCompleted
	})

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestQueueFailsAfterMaxRetries(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Start(ctx, func(ctx context.Context, job *jobs.UpdateModelJob) error {
		return errors.New("permanent failure")
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.UpdateModelJob{JobID: "doomed", UserID: "u1", MaxRetries: 1}
	if err := q.PublishUpdateModel(ctx, job); err != nil {
		t.Fatalf("PublishUpdateModel: %v", err)
	}

	waitFor(t, func() bool {
		saved, err := store.GetJob(ctx, "doomed")
		return err == nil && saved.Status == jobs.JobStatusFailed
	})

	saved, _ := store.GetJob(ctx, "doomed")
	if saved.Error != "permanent failure" {
		t.Errorf("Error = %q, want the handler error", saved.Error)
	}
}

func TestQueueRejectsPublishAfterStop(t *testing.T) {
	q := NewQueue(1, NewStore())
	ctx := context.Background()

	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	err := q.PublishUpdateModel(ctx, &jobs.UpdateModelJob{UserID: "u1"})
	if err == nil {
		t.Error("expected error publishing to a stopped queue")
	}
}

func TestStoreListJobsFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	seed := []*jobs.UpdateModelJob{
		{JobID: "a", UserID: "u1", Status: jobs.JobStatusCompleted},
		{JobID: "b", UserID: "u1", Status: jobs.JobStatusFailed},
		{JobID: "c", UserID: "u2", Status: jobs.JobStatusCompleted},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	byUser, err := store.ListJobs(ctx, jobs.JobFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("user filter: got %d jobs, want 2", len(byUser))
	}

	byStatus, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].JobID != "b" {
		t.Errorf("status filter: got %+v, want [b]", byStatus)
	}

	limited, err := store.ListJobs(ctx, jobs.JobFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit: got %d jobs, want 1", len(limited))
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.SaveJob(ctx, &jobs.UpdateModelJob{JobID: "a", UserID: "u1", Status: jobs.JobStatusPending}); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	got, err := store.GetJob(ctx, "a")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	got.Status = jobs.JobStatusFailed

	again, err := store.GetJob(ctx, "a")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if again.Status != jobs.JobStatusPending {
		t.Error("mutating a returned job leaked into the store")
	}
}
