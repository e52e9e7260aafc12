package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("job registry closed")

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is a point-in-time copy of a submitted job. P is the progress type.
type Job[T, P any] struct {
	ID         string     `json:"id"`
	Status     Status     `json:"status"`
	Progress   *P         `json:"progress,omitempty"`
	Result     *T         `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Work is the body of a job. report may be called any number of times.
type Work[T, P any] func(ctx context.Context, report func(P)) (T, error)

// Jobs runs submitted work in the background, at most limit at a time, and
// keeps finished jobs for retention.
type Jobs[T, P any] struct {
	mu        sync.Mutex
	jobs      map[string]*Job[T, P]
	slots     chan struct{}
	retention time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
	logger    *zap.Logger
}

func NewJobs[T, P any](limit int, retention time.Duration, logger *zap.Logger) *Jobs[T, P] {
	if limit < 1 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Jobs[T, P]{
		jobs:      make(map[string]*Job[T, P]),
		slots:     make(chan struct{}, limit),
		retention: retention,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}
}

// Submit queues work and returns its job id immediately.
func (j *Jobs[T, P]) Submit(work Work[T, P]) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return "", ErrClosed
	}
	j.pruneLocked(time.Now())

	job := &Job[T, P]{ID: uuid.NewString(), Status: StatusQueued, CreatedAt: time.Now().UTC()}
	j.jobs[job.ID] = job
	j.wg.Add(1)
	go j.run(job.ID, work)
	return job.ID, nil
}

func (j *Jobs[T, P]) run(id string, work Work[T, P]) {
	defer j.wg.Done()

	select {
	case j.slots <- struct{}{}:
	case <-j.ctx.Done():
		j.finish(id, nil, j.ctx.Err())
		return
	}
	defer func() { <-j.slots }()

	j.update(id, func(job *Job[T, P]) { job.Status = StatusRunning })

	fut := Go(func() (T, error) {
		return work(j.ctx, func(p P) {
			j.update(id, func(job *Job[T, P]) { job.Progress = &p })
		})
	})
	<-fut.Done()
	val, err := fut.val, fut.err
	j.finish(id, &val, err)
}

func (j *Jobs[T, P]) finish(id string, val *T, err error) {
	now := time.Now().UTC()
	j.update(id, func(job *Job[T, P]) {
		job.FinishedAt = &now
		if err != nil {
			job.Status = StatusFailed
			job.Error = err.Error()
			return
		}
		job.Status = StatusSucceeded
		job.Result = val
	})
	if err != nil {
		j.logger.Warn("background job failed", zap.String("job_id", id), zap.Error(err))
	} else {
		j.logger.Info("background job finished", zap.String("job_id", id))
	}
}

func (j *Jobs[T, P]) update(id string, fn func(*Job[T, P])) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job, ok := j.jobs[id]; ok {
		fn(job)
	}
}

// Get returns a copy of the job.
func (j *Jobs[T, P]) Get(id string) (Job[T, P], error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok {
		return Job[T, P]{}, ErrJobNotFound
	}
	return *job, nil
}

func (j *Jobs[T, P]) pruneLocked(now time.Time) {
	if j.retention <= 0 {
		return
	}
	for id, job := range j.jobs {
		if job.FinishedAt != nil && now.Sub(*job.FinishedAt) > j.retention {
			delete(j.jobs, id)
		}
	}
}

// Close cancels running work and waits for every job to return.
func (j *Jobs[T, P]) Close() {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()
	j.cancel()
	j.wg.Wait()
}
