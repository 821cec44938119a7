package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/async"
	"github.com/joseph-ayodele/gst-bills/internal/common"
)

// Jobs is the background extraction queue. *async.ProcessorQueue implements it.
type Jobs interface {
	Enqueue(ctx context.Context, job async.Job) (uuid.UUID, error)
	Status(id uuid.UUID) (async.JobState, bool)
}

func (h *Handler) enqueue(c *gin.Context, job async.Job) {
	job.TraceID = common.RequestIDFromContext(c.Request.Context())
	id, err := h.jobs.Enqueue(c.Request.Context(), job)
	switch {
	case errors.Is(err, async.ErrQueueClosed):
		Fail(c, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, async.ErrEmptyJob):
		Fail(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		FailErr(c, err)
		return
	}
	c.Header("Location", "/api/v1/jobs/"+id.String())
	c.JSON(http.StatusAccepted, Response{
		Code: 0,
		Msg:  "accepted",
		Data: gin.H{"id": id.String(), "status": async.StatusQueued},
	})
}

func (h *Handler) EnqueueImage(c *gin.Context) {
	image, source, ok := h.upload(c)
	if !ok {
		return
	}
	h.enqueue(c, async.Job{Source: source, Image: image})
}

func (h *Handler) EnqueueText(c *gin.Context) {
	var req extractTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "text is required")
		return
	}
	source, ok := parseSource(req.Source)
	if !ok {
		Fail(c, http.StatusBadRequest, fmt.Sprintf("unknown source %q", req.Source))
		return
	}
	h.enqueue(c, async.Job{Source: source, Text: req.Text})
}

func (h *Handler) EnqueueVoice(c *gin.Context) {
	var req extractVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "transcript is required")
		return
	}
	h.enqueue(c, async.Job{Source: constants.SourceVoice, Text: req.Transcript})
}

// JobStatus reports progress; a failed job carries the same status mapping as a
// synchronous extraction in its error message.
func (h *Handler) JobStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Fail(c, http.StatusBadRequest, "id must be a UUID")
		return
	}
	state, ok := h.jobs.Status(id)
	if !ok {
		Fail(c, http.StatusNotFound, "job not found")
		return
	}
	if state.Err != nil {
		_, state.Error = httpStatus(state.Err)
	}
	Success(c, state)
}
