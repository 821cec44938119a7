package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/pipeline"
)

type queuedJob struct {
	id uuid.UUID
	Job
}

type ProcessorQueue struct {
	proc      Processor
	logger    *slog.Logger
	workers   int
	timeout   time.Duration
	retention time.Duration
	now       func() time.Time

	ch   chan queuedJob
	wg   sync.WaitGroup
	once sync.Once

	sendMu sync.RWMutex
	closed bool

	mu     sync.Mutex
	states map[uuid.UUID]*JobState
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan queuedJob, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithRetention sets how long finished jobs stay visible to Status.
func WithRetention(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.retention = d
		}
	}
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:      proc,
		logger:    logger,
		workers:   4,
		timeout:   3 * time.Minute,
		retention: time.Hour,
		now:       time.Now,
		ch:        make(chan queuedJob, 256),
		states:    map[uuid.UUID]*JobState{},
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.process(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(workerID int, job queuedJob) {
	start := time.Now()
	q.update(job.id, func(s *JobState) { s.Status = StatusRunning })

	progress := pipeline.ProgressFunc(func(p int) {
		q.update(job.id, func(s *JobState) {
			if p > s.Progress {
				s.Progress = p
			}
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	var (
		x   *pipeline.Extraction
		err error
	)
	switch {
	case len(job.Image) > 0:
		x, err = q.proc.ProcessImage(ctx, job.Image, job.Source, progress)
	case job.Source == constants.SourceVoice:
		x, err = q.proc.ProcessVoice(ctx, job.Text, progress)
	default:
		x, err = q.proc.ProcessText(ctx, job.Text, job.Source, progress)
	}
	cancel()

	finished := q.now()
	q.update(job.id, func(s *JobState) {
		s.FinishedAt = &finished
		if err != nil {
			s.Status = StatusFailed
			s.Err = err
			s.Error = err.Error()
			return
		}
		s.Status = StatusDone
		s.Progress = pipeline.ProgressDone
		s.Extraction = x
	})

	if err != nil {
		q.logger.Error("async.job.failed", "worker_id", workerID, "job_id", job.id, "trace_id", job.TraceID, "error", err)
		return
	}
	q.logger.Info("async.job.ok",
		"worker_id", workerID,
		"job_id", job.id,
		"trace_id", job.TraceID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

func (q *ProcessorQueue) update(id uuid.UUID, fn func(*JobState)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.states[id]; ok {
		fn(s)
	}
}

// Enqueue registers the job and hands it to a worker. When the buffer is full it
// blocks until a slot frees up or ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) (uuid.UUID, error) {
	if len(job.Image) == 0 && job.Text == "" {
		return uuid.Nil, ErrEmptyJob
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = q.now()
	}
	id := uuid.New()

	// sendMu keeps Shutdown from closing the channel under a pending send.
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "trace_id", job.TraceID)
		return uuid.Nil, ErrQueueClosed
	}

	q.mu.Lock()
	q.prune()
	q.states[id] = &JobState{ID: id, Source: job.Source, Status: StatusQueued, SubmittedAt: job.SubmittedAt}
	q.mu.Unlock()

	qj := queuedJob{id: id, Job: job}
	select {
	case q.ch <- qj:
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", id)
		select {
		case q.ch <- qj:
		case <-ctx.Done():
			q.mu.Lock()
			delete(q.states, id)
			q.mu.Unlock()
			return uuid.Nil, ctx.Err()
		}
	}
	q.logger.Info("queued job for extraction", "job_id", id, "source", job.Source, "trace_id", job.TraceID)
	return id, nil
}

// prune drops finished jobs older than the retention window. Callers hold q.mu.
func (q *ProcessorQueue) prune() {
	cutoff := q.now().Add(-q.retention)
	for id, s := range q.states {
		if s.FinishedAt != nil && s.FinishedAt.Before(cutoff) {
			delete(q.states, id)
		}
	}
}

// Status returns a snapshot of the job's state.
func (q *ProcessorQueue) Status(id uuid.UUID) (JobState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.states[id]
	if !ok {
		return JobState{}, false
	}
	return *s, true
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.sendMu.Lock()
	if q.closed {
		q.sendMu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
