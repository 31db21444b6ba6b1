package domain

import (
	"errors"
	"time"
)

var ErrJobNotFound = errors.New("job not found")

// Job is a named recurring unit of work: a schedule plus the request
// template it re-sends. Runtime bookkeeping lives here and is advanced
// by the registry under its lock.
type Job struct {
	ID       string
	Schedule Schedule

	NextExecution       time.Time
	LastExecution       *time.Time
	ExecutionCount      int
	ConsecutiveFailures int
	IsActive            bool
	LastOutcome         *ExecutionOutcome

	CreatedAt time.Time
}

// Due reports whether the job should fire at now.
func (j *Job) Due(now time.Time) bool {
	return j.IsActive && !j.NextExecution.After(now)
}

// ExecutionOutcome records one execution attempt. Success is decided
// by HTTP status class; transport-level errors leave StatusCode zero
// and carry the error text instead.
type ExecutionOutcome struct {
	ExecutionID  string
	Success      bool
	StatusCode   int
	ResponseBody string // truncated for logging
	Error        *string
	Duration     time.Duration
	ExecutedAt   time.Time
}
