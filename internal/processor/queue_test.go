package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"workorder-board/internal/types"
	"workorder-board/pkg/config"
)

type funcHandler func(ctx context.Context, path string) (types.ProcessedOrder, error)

func (f funcHandler) Process(ctx context.Context, path string) (types.ProcessedOrder, error) {
	return f(ctx, path)
}

func waitForStatus(t *testing.T, id, want string) types.JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s, ok := config.GetJobStatuses()[id]; ok && s.Status == want {
			return *s
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Job %s never reached status %s", id, want)
	return types.JobStatus{}
}

func startQueue(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestQueueProcessesJobs(t *testing.T) {
	h := funcHandler(func(_ context.Context, path string) (types.ProcessedOrder, error) {
		return types.ProcessedOrder{WorkOrder: types.WorkOrder{Number: "175/2025", SourceFile: path}}, nil
	})

	var mu sync.Mutex
	broadcasts := 0
	q := NewQueue(h, 10, 2, func() {
		mu.Lock()
		broadcasts++
		mu.Unlock()
	})
	q.retain = time.Hour
	startQueue(t, q)

	job, err := q.Enqueue("/data/RN 0175.xlsx", "/data")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	t.Cleanup(func() { config.DeleteJobStatus(job.ID) })

	status := waitForStatus(t, job.ID, types.StatusCompleted)
	if status.Number != "175/2025" {
		t.Errorf("Expected number to be recorded, got %q", status.Number)
	}
	if status.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}

	mu.Lock()
	defer mu.Unlock()
	if broadcasts < 3 {
		t.Errorf("Expected queued, processing and completed broadcasts, got %d", broadcasts)
	}
}

func TestQueueRecordsErrorsAndRetries(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	h := funcHandler(func(context.Context, string) (types.ProcessedOrder, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return types.ProcessedOrder{}, errors.New("locked by Excel")
		}
		return types.ProcessedOrder{WorkOrder: types.WorkOrder{Number: "176/2025"}}, nil
	})

	q := NewQueue(h, 10, 1, nil)
	q.retain = time.Hour
	startQueue(t, q)

	job, err := q.Enqueue("/data/RN 0176.xlsx", "/data")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	t.Cleanup(func() { config.DeleteJobStatus(job.ID) })

	failed := waitForStatus(t, job.ID, types.StatusError)
	if failed.Error != "locked by Excel" {
		t.Errorf("Unexpected error message %q", failed.Error)
	}

	if err := q.Retry(job.ID); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	waitForStatus(t, job.ID, types.StatusCompleted)
}

func TestQueueRecoversFromPanics(t *testing.T) {
	h := funcHandler(func(context.Context, string) (types.ProcessedOrder, error) {
		panic("boom")
	})
	q := NewQueue(h, 10, 1, nil)
	startQueue(t, q)

	job, err := q.Enqueue("/data/bad.xlsx", "/data")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	t.Cleanup(func() { config.DeleteJobStatus(job.ID) })

	waitForStatus(t, job.ID, types.StatusError)
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(funcHandler(nil), 1, 1, nil)

	job, err := q.Enqueue("/a.xlsx", "/")
	if err != nil {
		t.Fatalf("First enqueue failed: %v", err)
	}
	t.Cleanup(func() { config.DeleteJobStatus(job.ID) })

	if _, err := q.Enqueue("/b.xlsx", "/"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
}

func TestQueueCancelAndClear(t *testing.T) {
	q := NewQueue(funcHandler(nil), 10, 1, nil)

	job, err := q.Enqueue("/a.xlsx", "/")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	t.Cleanup(func() { config.DeleteJobStatus(job.ID) })

	if err := q.Cancel(job.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if job.CancelContext.Err() == nil {
		t.Error("Job context should be cancelled")
	}
	if s := config.GetJobStatuses()[job.ID]; s.Status != types.StatusCancelled {
		t.Errorf("Expected status %s, got %s", types.StatusCancelled, s.Status)
	}
	if err := q.Cancel(job.ID); !errors.Is(err, ErrNotCancelable) {
		t.Errorf("Expected ErrNotCancelable, got %v", err)
	}
	if err := q.Cancel("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
	if err := q.Retry(job.ID); !errors.Is(err, ErrNotRetryable) {
		t.Errorf("Expected ErrNotRetryable, got %v", err)
	}

	config.SetJobStatus("clear-done", &types.JobStatus{Status: types.StatusCompleted})
	config.SetJobStatus("clear-failed", &types.JobStatus{Status: types.StatusError})
	t.Cleanup(func() {
		config.DeleteJobStatus("clear-done")
		config.DeleteJobStatus("clear-failed")
	})

	if removed := q.Clear(); removed < 2 {
		t.Errorf("Expected at least 2 removed jobs, got %d", removed)
	}
	if _, ok := config.GetJobStatuses()[job.ID]; !ok {
		t.Error("Cancelled job should stay until its cleanup")
	}
}

func TestConcurrentRetriesEnqueueOnce(t *testing.T) {
	q := NewQueue(funcHandler(nil), 10, 1, nil)
	config.SetJobStatus("retry-race", &types.JobStatus{
		Job:    &types.ProcessJob{ID: "retry-race", Path: "/a.xlsx"},
		Status: types.StatusError,
	})
	t.Cleanup(func() { config.DeleteJobStatus("retry-race") })

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := q.Retry("retry-race"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ErrNotRetryable) {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("Expected exactly one successful retry, got %d", succeeded)
	}
	if len(q.jobs) != 1 {
		t.Errorf("Expected one queued job, got %d", len(q.jobs))
	}
	if s := config.GetJobStatuses()["retry-race"]; s.Attempt != 1 || s.Status != types.StatusQueued {
		t.Errorf("Unexpected status %+v", s)
	}
}

func TestRetryOnFullQueueRestoresStatus(t *testing.T) {
	q := NewQueue(funcHandler(nil), 1, 1, nil)
	filler, err := q.Enqueue("/filler.xlsx", "/")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	t.Cleanup(func() { config.DeleteJobStatus(filler.ID) })

	config.SetJobStatus("retry-full", &types.JobStatus{
		Job:    &types.ProcessJob{ID: "retry-full", Path: "/a.xlsx"},
		Status: types.StatusError,
		Error:  "locked",
	})
	t.Cleanup(func() { config.DeleteJobStatus("retry-full") })

	if err := q.Retry("retry-full"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Expected ErrQueueFull, got %v", err)
	}
	s := config.GetJobStatuses()["retry-full"]
	if s.Status != types.StatusError || s.Error != "locked" || s.Attempt != 0 {
		t.Errorf("Status should be restored, got %+v", s)
	}
}

func TestCleanupSkipsRetriedJob(t *testing.T) {
	q := NewQueue(funcHandler(nil), 10, 1, nil)
	q.retain = 50 * time.Millisecond

	config.SetJobStatus("cleanup-retried", &types.JobStatus{Status: types.StatusCompleted})
	t.Cleanup(func() { config.DeleteJobStatus("cleanup-retried") })
	q.cleanupAfter("cleanup-retried", types.StatusCompleted)

	// Retried and completed again before the first cleanup fires
	config.ModifyJobStatus("cleanup-retried", func(js *types.JobStatus) {
		js.Attempt++
	})
	time.Sleep(200 * time.Millisecond)

	if _, ok := config.GetJobStatuses()["cleanup-retried"]; !ok {
		t.Error("The new attempt should not be removed by the earlier cleanup")
	}

	config.SetJobStatus("cleanup-done", &types.JobStatus{Status: types.StatusCompleted})
	t.Cleanup(func() { config.DeleteJobStatus("cleanup-done") })
	q.cleanupAfter("cleanup-done", types.StatusCompleted)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := config.GetJobStatuses()["cleanup-done"]; !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Completed job should be cleaned up")
}
