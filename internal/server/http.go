package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/common"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the JSON API.
type Handler struct {
	svc            Bills
	jobs           Jobs
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewHandler(svc Bills, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{svc: svc, logger: logger, maxUploadBytes: maxUploadBytes}
}

// WithJobs enables the background extraction endpoints under /api/v1/jobs.
func (h *Handler) WithJobs(jobs Jobs) *Handler {
	h.jobs = jobs
	return h
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))
	r.MaxMultipartMemory = h.maxUploadBytes

	r.GET("/health", func(c *gin.Context) {
		Success(c, gin.H{"status": "ok", "service": "gst-bills"})
	})

	api := r.Group("/api/v1")
	{
		extract := api.Group("/extract")
		{
			extract.POST("/image", h.ExtractImage)
			extract.POST("/text", h.ExtractText)
			extract.POST("/voice", h.ExtractVoice)
		}
		records := api.Group("/records")
		{
			records.POST("/rate", h.EditRate)
			records.POST("/amount", h.EditAmount)
		}
		bills := api.Group("/bills")
		{
			bills.POST("", h.Confirm)
			bills.GET("", h.List)
			bills.GET("/export", h.Export)
			bills.GET("/:id", h.Get)
			bills.DELETE("/:id", h.Delete)
		}
		if h.jobs != nil {
			jobs := api.Group("/jobs")
			{
				jobs.POST("/image", h.EnqueueImage)
				jobs.POST("/text", h.EnqueueText)
				jobs.POST("/voice", h.EnqueueVoice)
				jobs.GET("/:id", h.JobStatus)
			}
		}
	}
	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.New().String()
		}
		start := time.Now()
		c.Header("X-Request-ID", rid)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), rid))

		c.Next()

		logger.Info("http.request",
			"req_id", rid,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

type extractTextRequest struct {
	Text   string `json:"text" binding:"required"`
	Source string `json:"source"`
}

type extractVoiceRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

type editRequest struct {
	Record entity.InvoiceRecord `json:"record"`
	Rate   string               `json:"rate"`
	Amount any                  `json:"amount"` // "1,250.50" or 1250.5
}

type confirmRequest struct {
	Record entity.InvoiceRecord `json:"record"`
	Source string               `json:"source"`
}

// upload reads the multipart image and its source kind. It writes the failure
// response itself and reports false when the request is unusable.
func (h *Handler) upload(c *gin.Context) ([]byte, constants.SourceKind, bool) {
	source, ok := parseSource(c.PostForm("source"))
	if !ok || source == constants.SourceVoice {
		Fail(c, http.StatusBadRequest, "source must be image or camera")
		return nil, "", false
	}
	fh, err := c.FormFile("file")
	if err != nil {
		Fail(c, http.StatusBadRequest, "multipart field 'file' is required")
		return nil, "", false
	}
	if fh.Size > h.maxUploadBytes {
		Fail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes))
		return nil, "", false
	}
	f, err := fh.Open()
	if err != nil {
		Fail(c, http.StatusBadRequest, "cannot read uploaded file")
		return nil, "", false
	}
	defer f.Close()
	image, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes))
	if err != nil || len(image) == 0 {
		Fail(c, http.StatusBadRequest, "cannot read uploaded file")
		return nil, "", false
	}
	return image, source, true
}

func (h *Handler) ExtractImage(c *gin.Context) {
	image, source, ok := h.upload(c)
	if !ok {
		return
	}
	x, err := h.svc.ExtractImage(c.Request.Context(), image, source)
	if err != nil {
		h.logger.Warn("http.extract.failed", "req_id", common.RequestIDFromContext(c.Request.Context()), "error", err)
		FailErr(c, err)
		return
	}
	Success(c, x)
}

func (h *Handler) ExtractText(c *gin.Context) {
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
	x, err := h.svc.ExtractText(c.Request.Context(), req.Text, source)
	if err != nil {
		FailErr(c, err)
		return
	}
	Success(c, x)
}

func (h *Handler) ExtractVoice(c *gin.Context) {
	var req extractVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "transcript is required")
		return
	}
	x, err := h.svc.ExtractVoice(c.Request.Context(), req.Transcript)
	if err != nil {
		FailErr(c, err)
		return
	}
	Success(c, x)
}

func (h *Handler) EditRate(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := h.svc.EditRate(req.Record, req.Rate)
	if err != nil {
		FailErr(c, err)
		return
	}
	Success(c, rec)
}

func (h *Handler) EditAmount(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	var amount string
	switch v := req.Amount.(type) {
	case string:
		amount = v
	case float64:
		amount = strconv.FormatFloat(v, 'f', -1, 64)
	}
	rec, err := h.svc.EditAmount(req.Record, amount)
	if err != nil {
		FailErr(c, err)
		return
	}
	Success(c, rec)
}

func (h *Handler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	source, ok := parseSource(req.Source)
	if !ok {
		Fail(c, http.StatusBadRequest, fmt.Sprintf("unknown source %q", req.Source))
		return
	}
	b, err := h.svc.Confirm(c.Request.Context(), req.Record, source)
	if err != nil {
		FailErr(c, err)
		return
	}
	Created(c, b)
}

func (h *Handler) window(c *gin.Context) (*time.Time, *time.Time, bool) {
	from, err := parseDate(strings.TrimSpace(c.Query("from")))
	if err != nil {
		Fail(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return nil, nil, false
	}
	to, err := parseDate(strings.TrimSpace(c.Query("to")))
	if err != nil {
		Fail(c, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return nil, nil, false
	}
	return from, to, true
}

func (h *Handler) List(c *gin.Context) {
	from, to, ok := h.window(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), from, to)
	if err != nil {
		FailErr(c, err)
		return
	}
	Success(c, nonNil(list))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Fail(c, http.StatusBadRequest, "id must be a UUID")
		return
	}
	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		FailErr(c, err)
		return
	}
	Success(c, b)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Fail(c, http.StatusBadRequest, "id must be a UUID")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		FailErr(c, err)
		return
	}
	Success(c, gin.H{"id": id.String(), "deleted": true})
}

func (h *Handler) Export(c *gin.Context) {
	from, to, ok := h.window(c)
	if !ok {
		return
	}
	xlsx, err := h.svc.Export(c.Request.Context(), from, to)
	if err != nil {
		h.logger.Error("export.xlsx.failed", "error", err)
		FailErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(from, to)))
	c.Data(http.StatusOK, xlsxContentType, xlsx)
}
