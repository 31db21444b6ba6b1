package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olmedhq/erp-gateway/internal/domain"
	"github.com/olmedhq/erp-gateway/internal/registry"
)

type JobHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewJobHandler(reg *registry.Registry, logger *slog.Logger) *JobHandler {
	return &JobHandler{registry: reg, logger: logger.With("component", "job_handler")}
}

type requestTemplate struct {
	Method        string            `json:"method"  binding:"required,oneof=GET POST PUT PATCH DELETE"`
	URL           string            `json:"url"     binding:"required,url,max=2048"`
	Headers       map[string]string `json:"headers"`
	Body          string            `json:"body"`
	UseSharedAuth bool              `json:"use_shared_auth"`
}

type scheduleRequest struct {
	Kind            string          `json:"kind" binding:"required,oneof=interval daily weekly once_at"`
	IntervalSeconds int             `json:"interval_seconds"`
	Hour            int             `json:"hour"`
	Minute          int             `json:"minute"`
	DayOfWeek       string          `json:"day_of_week"`
	RunAt           time.Time       `json:"run_at"`
	Request         requestTemplate `json:"request" binding:"required"`
}

type upsertJobRequest struct {
	ID       string          `json:"id"       binding:"required,max=256"`
	Schedule scheduleRequest `json:"schedule" binding:"required"`
}

type outcomeResponse struct {
	ExecutionID  string    `json:"execution_id"`
	Success      bool      `json:"success"`
	StatusCode   int       `json:"status_code,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
	Error        *string   `json:"error,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	ExecutedAt   time.Time `json:"executed_at"`
}

type jobResponse struct {
	ID                  string           `json:"id"`
	Kind                string           `json:"kind"`
	URL                 string           `json:"url"`
	Method              string           `json:"method"`
	NextExecution       time.Time        `json:"next_execution"`
	LastExecution       *time.Time       `json:"last_execution,omitempty"`
	ExecutionCount      int              `json:"execution_count"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
	IsActive            bool             `json:"is_active"`
	CreatedAt           time.Time        `json:"created_at"`
	LastOutcome         *outcomeResponse `json:"last_outcome,omitempty"`
}

type listJobsResponse struct {
	Jobs []jobResponse `json:"jobs"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (h *JobHandler) Upsert(ctx *gin.Context) {
	var req upsertJobRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule := domain.Schedule{
		Kind:            domain.ScheduleKind(req.Schedule.Kind),
		IntervalSeconds: req.Schedule.IntervalSeconds,
		Hour:            req.Schedule.Hour,
		Minute:          req.Schedule.Minute,
		RunAt:           req.Schedule.RunAt,
		Request: domain.RequestTemplate{
			Method:        req.Schedule.Request.Method,
			URL:           req.Schedule.Request.URL,
			Headers:       req.Schedule.Request.Headers,
			Body:          req.Schedule.Request.Body,
			UseSharedAuth: req.Schedule.Request.UseSharedAuth,
		},
	}

	if req.Schedule.DayOfWeek != "" {
		dow, ok := weekdays[strings.ToLower(req.Schedule.DayOfWeek)]
		if !ok {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "day_of_week must be a weekday name"})
			return
		}
		schedule.DayOfWeek = &dow
	}

	job, err := h.registry.AddOrUpdate(req.ID, schedule)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSchedule) || errors.Is(err, domain.ErrUnknownKind) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.ErrorContext(ctx.Request.Context(), "upsert job", "job_id", req.ID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) List(ctx *gin.Context) {
	jobs := h.registry.All()

	resp := listJobsResponse{Jobs: make([]jobResponse, 0, len(jobs))}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(job))
	}
	ctx.JSON(http.StatusOK, resp)
}

func (h *JobHandler) GetByID(ctx *gin.Context) {
	jobID := ctx.Param("id")

	job, err := h.registry.Get(jobID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	ctx.JSON(http.StatusOK, toJobResponse(job))
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive pauses or resumes a job. A paused job's next_execution is
// frozen; resuming makes any missed slot due on the next tick.
func (h *JobHandler) SetActive(ctx *gin.Context) {
	jobID := ctx.Param("id")

	var req setActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registry.SetActive(jobID, *req.Active); err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}

	job, err := h.registry.Get(jobID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	ctx.JSON(http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) Remove(ctx *gin.Context) {
	jobID := ctx.Param("id")

	if !h.registry.Remove(jobID) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	ctx.Status(http.StatusNoContent)
}

func toJobResponse(job *domain.Job) jobResponse {
	resp := jobResponse{
		ID:                  job.ID,
		Kind:                string(job.Schedule.Kind),
		URL:                 job.Schedule.Request.URL,
		Method:              job.Schedule.Request.Method,
		NextExecution:       job.NextExecution,
		LastExecution:       job.LastExecution,
		ExecutionCount:      job.ExecutionCount,
		ConsecutiveFailures: job.ConsecutiveFailures,
		IsActive:            job.IsActive,
		CreatedAt:           job.CreatedAt,
	}
	if job.LastOutcome != nil {
		o := toOutcomeResponse(*job.LastOutcome)
		resp.LastOutcome = &o
	}
	return resp
}

func toOutcomeResponse(o domain.ExecutionOutcome) outcomeResponse {
	return outcomeResponse{
		ExecutionID:  o.ExecutionID,
		Success:      o.Success,
		StatusCode:   o.StatusCode,
		ResponseBody: o.ResponseBody,
		Error:        o.Error,
		DurationMS:   o.Duration.Milliseconds(),
		ExecutedAt:   o.ExecutedAt,
	}
}
