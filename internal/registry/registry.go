// Package registry holds the in-memory job table shared between the
// HTTP API and the scheduler loop. All state lives for the process
// lifetime only; definitions are rebuilt from the sync-config stores.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/olmedhq/erp-gateway/internal/domain"
)

type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
	now  func() time.Time
}

func New() *Registry {
	return &Registry{
		jobs: make(map[string]*domain.Job),
		now:  time.Now,
	}
}

// AddOrUpdate registers a job or replaces an existing job's schedule.
// The upsert is idempotent: execution bookkeeping and a paused job's
// paused state survive, the schedule is replaced wholesale and
// NextExecution is recomputed from now. Invalid schedules are rejected
// here and never enter the table.
func (r *Registry) AddOrUpdate(id string, schedule domain.Schedule) (*domain.Job, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: job id is required", domain.ErrInvalidSchedule)
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()

	job, ok := r.jobs[id]
	if !ok {
		job = &domain.Job{
			ID:        id,
			IsActive:  true,
			CreatedAt: now,
		}
		r.jobs[id] = job
	}

	job.Schedule = schedule
	job.NextExecution = schedule.NextAfter(now, nil)

	return copyJob(job), nil
}

// Remove deletes a job and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.jobs[id]
	delete(r.jobs, id)
	return ok
}

func (r *Registry) Get(id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return copyJob(job), nil
}

// All returns a snapshot of every job. Callers can enumerate freely
// while the loop keeps mutating the live records.
func (r *Registry) All() []*domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, copyJob(job))
	}
	return out
}

func (r *Registry) SetActive(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.IsActive = active
	return nil
}

// ClaimDue selects up to limit active jobs whose NextExecution has
// passed and advances their bookkeeping in the same critical section:
// LastExecution and ExecutionCount move forward and NextExecution is
// recomputed immediately, so the slot is consumed when claimed and a
// slow execution cannot be claimed again on the next tick. Due jobs
// beyond the limit keep their slot untouched and stay claimable.
// OnceAt jobs are deactivated here; they fire exactly once per
// registration.
//
// Returned copies carry the post-claim state plus the request template
// the executor needs.
func (r *Registry) ClaimDue(now time.Time, limit int) []*domain.Job {
	now = now.UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*domain.Job
	for _, job := range r.jobs {
		if len(due) >= limit {
			break
		}
		if !job.Due(now) {
			continue
		}

		last := now
		job.LastExecution = &last
		job.ExecutionCount++
		job.NextExecution = job.Schedule.NextAfter(now, &last)
		if job.Schedule.Kind == domain.KindOnceAt {
			job.IsActive = false
		}

		due = append(due, copyJob(job))
	}
	return due
}

// RecordOutcome attaches the result of one execution attempt and
// maintains the consecutive-failure counter that drives alerting.
func (r *Registry) RecordOutcome(id string, outcome domain.ExecutionOutcome) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		// Removed while its execution was in flight; drop the outcome.
		return nil, domain.ErrJobNotFound
	}

	job.LastOutcome = &outcome
	if outcome.Success {
		job.ConsecutiveFailures = 0
	} else {
		job.ConsecutiveFailures++
	}
	return copyJob(job), nil
}

func copyJob(job *domain.Job) *domain.Job {
	c := *job

	if job.LastExecution != nil {
		t := *job.LastExecution
		c.LastExecution = &t
	}
	if job.Schedule.DayOfWeek != nil {
		d := *job.Schedule.DayOfWeek
		c.Schedule.DayOfWeek = &d
	}
	if job.LastOutcome != nil {
		o := *job.LastOutcome
		c.LastOutcome = &o
	}
	if job.Schedule.Request.Headers != nil {
		h := make(map[string]string, len(job.Schedule.Request.Headers))
		for k, v := range job.Schedule.Request.Headers {
			h[k] = v
		}
		c.Schedule.Request.Headers = h
	}
	return &c
}
