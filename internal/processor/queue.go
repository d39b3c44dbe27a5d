package processor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"workorder-board/internal/types"
	"workorder-board/pkg/config"
)

var (
	ErrQueueFull     = errors.New("processing queue is full")
	ErrJobNotFound   = errors.New("job not found")
	ErrNotRetryable  = errors.New("only failed or completed jobs can be retried")
	ErrNotCancelable = errors.New("only queued or processing jobs can be cancelled")
)

// Handler processes one spreadsheet
type Handler interface {
	Process(ctx context.Context, path string) (types.ProcessedOrder, error)
}

// Queue feeds detected spreadsheets to a fixed pool of workers. Job state
// lives in the config registry so handlers and websocket clients can see it.
type Queue struct {
	jobs      chan *types.ProcessJob
	handler   Handler
	workers   int
	retain    time.Duration
	broadcast func()
}

// NewQueue returns a queue holding up to size pending jobs
func NewQueue(handler Handler, size, workers int, broadcast func()) *Queue {
	if size < 1 {
		size = 100
	}
	if workers < 1 {
		workers = 1
	}
	if broadcast == nil {
		broadcast = func() {}
	}
	return &Queue{
		jobs:      make(chan *types.ProcessJob, size),
		handler:   handler,
		workers:   workers,
		retain:    5 * time.Second,
		broadcast: broadcast,
	}
}

// Enqueue adds a spreadsheet to the queue without blocking
func (q *Queue) Enqueue(path, folder string) (*types.ProcessJob, error) {
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	job := &types.ProcessJob{
		ID:            uuid.NewString(),
		Path:          path,
		Folder:        folder,
		CreatedAt:     time.Now(),
		CancelContext: cancelCtx,
		CancelFunc:    cancelFunc,
	}

	config.SetJobStatus(job.ID, &types.JobStatus{
		Job:      job,
		Status:   types.StatusQueued,
		Progress: "Čeka obradu",
	})

	select {
	case q.jobs <- job:
		logrus.WithFields(logrus.Fields{
			"jobId": job.ID,
			"file":  path,
		}).Info("Job added to queue")
	default:
		logrus.WithField("jobId", job.ID).Warn("Queue full, removing job")
		cancelFunc()
		config.DeleteJobStatus(job.ID)
		return nil, ErrQueueFull
	}

	q.broadcast()
	return job, nil
}

// Retry puts a failed or completed job back on the queue under the same ID
func (q *Queue) Retry(id string) error {
	cancelCtx, cancelFunc := context.WithCancel(context.Background())

	var (
		job      *types.ProcessJob
		previous types.JobStatus
		err      = ErrNotRetryable
	)
	found := config.ModifyJobStatus(id, func(js *types.JobStatus) {
		if js.Job == nil {
			err = ErrJobNotFound
			return
		}
		if js.Status != types.StatusError && js.Status != types.StatusCompleted {
			return
		}
		previous = *js
		job = &types.ProcessJob{
			ID:            id,
			Path:          js.Job.Path,
			Folder:        js.Job.Folder,
			CreatedAt:     js.Job.CreatedAt,
			CancelContext: cancelCtx,
			CancelFunc:    cancelFunc,
		}
		js.Job = job
		js.Status = types.StatusQueued
		js.Progress = "Ponovni pokušaj..."
		js.Error = ""
		js.CompletedAt = nil
		js.Attempt++
		err = nil
	})
	if !found {
		err = ErrJobNotFound
	}
	if err != nil {
		cancelFunc()
		return err
	}

	select {
	case q.jobs <- job:
	default:
		cancelFunc()
		config.ModifyJobStatus(id, func(js *types.JobStatus) {
			if js.Job == job {
				*js = previous
			}
		})
		return ErrQueueFull
	}

	logrus.WithField("jobId", id).Info("Job re-added to queue for retry")
	q.broadcast()
	return nil
}

// Cancel stops a queued or running job and drops it from the registry
func (q *Queue) Cancel(id string) error {
	var cancel context.CancelFunc
	cancelled := false
	found := config.ModifyJobStatus(id, func(js *types.JobStatus) {
		if js.Status != types.StatusQueued && js.Status != types.StatusProcessing {
			return
		}
		js.Status = types.StatusCancelled
		js.Progress = "Otkazano"
		now := time.Now()
		js.CompletedAt = &now
		if js.Job != nil {
			cancel = js.Job.CancelFunc
		}
		cancelled = true
	})
	if !found {
		return ErrJobNotFound
	}
	if !cancelled {
		return ErrNotCancelable
	}

	if cancel != nil {
		cancel()
	}
	logrus.WithField("jobId", id).Info("Job cancelled")
	q.broadcast()
	q.cleanupAfter(id, types.StatusCancelled)
	return nil
}

// Clear removes finished jobs and returns how many were removed
func (q *Queue) Clear() int {
	removed := 0
	for id, status := range config.GetJobStatuses() {
		if status.Status == types.StatusCompleted || status.Status == types.StatusError {
			config.DeleteJobStatus(id)
			removed++
		}
	}
	q.broadcast()
	return removed
}

// Run starts the workers and blocks until ctx is done
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		worker := i + 1
		g.Go(func() error {
			q.work(ctx, worker)
			return nil
		})
	}
	return g.Wait()
}

func (q *Queue) work(ctx context.Context, worker int) {
	log := logrus.WithField("worker", worker)
	log.Info("Worker started")
	defer log.Info("Worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.runJob(ctx, job, log)
		}
	}
}

func (q *Queue) runJob(ctx context.Context, job *types.ProcessJob, log *logrus.Entry) {
	log = log.WithFields(logrus.Fields{
		"jobId": job.ID,
		"file":  job.Path,
	})

	statuses := config.GetJobStatuses()
	if s, ok := statuses[job.ID]; !ok || s.Status == types.StatusCancelled {
		log.Info("Job was cancelled, skipping processing")
		return
	}

	config.UpdateJobStatus(job.ID, types.StatusProcessing, "Obrada u tijeku")
	q.broadcast()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Job processing panicked")
			q.finish(job.ID, types.StatusError, "Greška pri obradi", "panic during processing")
		}
	}()

	jobCtx := job.CancelContext
	if jobCtx == nil {
		jobCtx = context.Background()
	}
	jobCtx, cancel := context.WithCancel(jobCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	order, err := q.handler.Process(jobCtx, job.Path)
	if jobCtx.Err() != nil && errors.Is(err, context.Canceled) {
		log.Info("Job cancelled during processing")
		return
	}
	if err != nil {
		q.finish(job.ID, types.StatusError, "Greška pri obradi", err.Error())
		return
	}

	config.ModifyJobStatus(job.ID, func(js *types.JobStatus) {
		js.Number = order.Number
	})
	q.finish(job.ID, types.StatusCompleted, "Objavljeno", "")
	q.cleanupAfter(job.ID, types.StatusCompleted)
	log.Info("Job processing finished, worker ready for next job")
}

func (q *Queue) finish(id, status, progress, errMsg string) {
	config.ModifyJobStatus(id, func(js *types.JobStatus) {
		if js.Status == types.StatusCancelled {
			return
		}
		js.Status = status
		js.Progress = progress
		js.Error = errMsg
		now := time.Now()
		js.CompletedAt = &now
	})
	q.broadcast()
}

// cleanupAfter drops a job once it has been visible for the retain period.
// Failed jobs are kept so they can be retried. A retry in between makes a
// new attempt, which this cleanup leaves alone.
func (q *Queue) cleanupAfter(id, status string) {
	s, ok := config.GetJobStatuses()[id]
	if !ok {
		return
	}
	attempt := s.Attempt

	go func() {
		time.Sleep(q.retain)
		removed := config.DeleteJobStatusIf(id, func(js types.JobStatus) bool {
			return js.Status == status && js.Attempt == attempt
		})
		if removed {
			logrus.WithField("jobId", id).Info("Job cleaned up from queue")
			q.broadcast()
		}
	}()
}
