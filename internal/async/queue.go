// Package async runs extractions in the background so clients can poll for progress
// instead of holding a request open for the whole OCR and text-generation round trip.
package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/pipeline"
)

var (
	ErrQueueClosed = errors.New("queue is shutting down")
	ErrEmptyJob    = errors.New("job has neither image nor text")
)

// Job is one extraction request. Image wins over Text when both are set.
type Job struct {
	Source      constants.SourceKind
	Image       []byte
	Text        string
	SubmittedAt time.Time
	TraceID     string
}

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// JobState is the externally visible progress of a job.
type JobState struct {
	ID          uuid.UUID            `json:"id"`
	Source      constants.SourceKind `json:"source"`
	Status      Status               `json:"status"`
	Progress    int                  `json:"progress"`
	Extraction  *pipeline.Extraction `json:"extraction,omitempty"`
	Error       string               `json:"error,omitempty"`
	Err         error                `json:"-"`
	SubmittedAt time.Time            `json:"submittedAt"`
	FinishedAt  *time.Time           `json:"finishedAt,omitempty"`
}

// Processor is the part of *pipeline.Processor the queue drives.
type Processor interface {
	ProcessImage(ctx context.Context, image []byte, source constants.SourceKind, progress pipeline.ProgressFunc) (*pipeline.Extraction, error)
	ProcessText(ctx context.Context, rawText string, source constants.SourceKind, progress pipeline.ProgressFunc) (*pipeline.Extraction, error)
	ProcessVoice(ctx context.Context, transcript string, progress pipeline.ProgressFunc) (*pipeline.Extraction, error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) (uuid.UUID, error)
	Status(id uuid.UUID) (JobState, bool)
	Shutdown(ctx context.Context)
}
