// Package scheduler hosts the in-process cron loop: a ticker that
// claims due jobs from the registry and executes each one on its own
// goroutine, bounded by a semaphore.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olmedhq/erp-gateway/internal/alert"
	"github.com/olmedhq/erp-gateway/internal/domain"
	"github.com/olmedhq/erp-gateway/internal/metrics"
	"github.com/olmedhq/erp-gateway/internal/registry"
)

type Runner struct {
	registry         *registry.Registry
	executor         *Executor
	alerts           alert.Notifier
	logger           *slog.Logger
	tickInterval     time.Duration
	failureThreshold int // consecutive failures before alerting; 0 disables
	sem              chan struct{}
}

func NewRunner(
	reg *registry.Registry,
	executor *Executor,
	alerts alert.Notifier,
	logger *slog.Logger,
	tickInterval time.Duration,
	concurrency int,
	failureThreshold int,
) *Runner {
	return &Runner{
		registry:         reg,
		executor:         executor,
		alerts:           alerts,
		logger:           logger.With("component", "scheduler"),
		tickInterval:     tickInterval,
		failureThreshold: failureThreshold,
		sem:              make(chan struct{}, concurrency),
	}
}

// Start runs the loop until ctx is done. The loop itself never does
// I/O; it only claims due jobs and dispatches goroutines, so a hung
// outbound call can never stall a tick.
func (r *Runner) Start(ctx context.Context) {
	metrics.SchedulerStartTime.SetToCurrentTime()

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	r.logger.Info("scheduler started", "tick_interval", r.tickInterval, "concurrency", cap(r.sem))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler shut down")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()

	// Claim at most as many jobs as there are free execution slots; the
	// dispatch loop below then acquires the semaphore without blocking.
	// Due jobs beyond the cap keep their slot and are claimed on a later
	// tick, once a worker has freed up.
	available := cap(r.sem) - len(r.sem)
	if available == 0 {
		r.logger.Warn("all execution slots busy, nothing claimed this tick")
		metrics.TickDuration.Observe(time.Since(start).Seconds())
		return
	}

	due := r.registry.ClaimDue(start.UTC(), available)
	if len(due) > 0 {
		r.logger.Info("claimed due jobs", "count", len(due), "slots_available", available)
	}

	for _, job := range due {
		r.sem <- struct{}{}
		go func(j *domain.Job) {
			metrics.JobsInFlight.Inc()
			defer metrics.JobsInFlight.Dec()
			defer func() { <-r.sem }()
			r.run(ctx, j)
		}(job)
	}

	metrics.TickDuration.Observe(time.Since(start).Seconds())
}

// run executes one claimed job. Failures are absorbed here: the job's
// slot was already advanced at claim time, so a broken endpoint just
// keeps failing on schedule without touching the loop or other jobs.
func (r *Runner) run(ctx context.Context, job *domain.Job) {
	r.logger.Info("executing job",
		"job_id", job.ID,
		"method", job.Schedule.Request.Method,
		"url", job.Schedule.Request.URL,
	)

	outcome := r.executor.Execute(ctx, job.Schedule.Request)

	updated, err := r.registry.RecordOutcome(job.ID, outcome)
	if err != nil {
		r.logger.Warn("job removed mid-execution, outcome dropped", "job_id", job.ID)
		return
	}

	if outcome.Success {
		metrics.JobExecutionsTotal.WithLabelValues("success").Inc()
		metrics.JobExecutionDuration.WithLabelValues("success").Observe(outcome.Duration.Seconds())
		r.logger.Info("job completed", "job_id", job.ID, "status_code", outcome.StatusCode, "duration", outcome.Duration)
		return
	}

	metrics.JobExecutionsTotal.WithLabelValues("failure").Inc()
	metrics.JobExecutionDuration.WithLabelValues("failure").Observe(outcome.Duration.Seconds())

	errMsg := ""
	if outcome.Error != nil {
		errMsg = *outcome.Error
	}
	r.logger.Warn("job failed",
		"job_id", job.ID,
		"status_code", outcome.StatusCode,
		"error", errMsg,
		"consecutive_failures", updated.ConsecutiveFailures,
		"next_execution", updated.NextExecution,
	)

	if r.failureThreshold > 0 && updated.ConsecutiveFailures == r.failureThreshold {
		subject := fmt.Sprintf("gateway job %q failing", job.ID)
		body := fmt.Sprintf(
			"<p>Job <b>%s</b> has failed %d times in a row.</p><p>Last error: %s</p><p>Target: %s %s</p>",
			job.ID, updated.ConsecutiveFailures, errMsg,
			job.Schedule.Request.Method, job.Schedule.Request.URL,
		)
		if err := r.alerts.Notify(ctx, subject, body); err != nil {
			r.logger.Error("send failure alert", "job_id", job.ID, "error", err)
		}
	}
}
