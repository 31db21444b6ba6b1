package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrUnknownKind     = errors.New("unknown schedule kind")
)

type ScheduleKind string

const (
	KindInterval ScheduleKind = "interval"
	KindDaily    ScheduleKind = "daily"
	KindWeekly   ScheduleKind = "weekly"
	KindOnceAt   ScheduleKind = "once_at"
)

// RequestTemplate is the outbound HTTP call a job re-sends on every
// execution. It is immutable once attached to a job; only the shared
// bearer header is injected dynamically.
type RequestTemplate struct {
	Method        string
	URL           string
	Headers       map[string]string
	Body          string
	UseSharedAuth bool
}

// Schedule describes when a job fires. Which fields are required
// depends on Kind; Validate enforces that before a schedule enters
// the registry.
type Schedule struct {
	Kind            ScheduleKind
	IntervalSeconds int
	Hour            int
	Minute          int
	DayOfWeek       *time.Weekday // nil means not configured; required for weekly
	RunAt           time.Time

	Request RequestTemplate
}

func (s Schedule) Validate() error {
	switch s.Kind {
	case KindInterval:
		if s.IntervalSeconds <= 0 {
			return fmt.Errorf("%w: interval_seconds must be > 0", ErrInvalidSchedule)
		}
	case KindDaily:
		if err := s.validateTimeOfDay(); err != nil {
			return err
		}
	case KindWeekly:
		if err := s.validateTimeOfDay(); err != nil {
			return err
		}
		if s.DayOfWeek == nil {
			return fmt.Errorf("%w: day_of_week is required", ErrInvalidSchedule)
		}
		if *s.DayOfWeek < time.Sunday || *s.DayOfWeek > time.Saturday {
			return fmt.Errorf("%w: day_of_week out of range", ErrInvalidSchedule)
		}
	case KindOnceAt:
		if s.RunAt.IsZero() {
			return fmt.Errorf("%w: run_at is required", ErrInvalidSchedule)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}

	if s.Request.Method == "" || s.Request.URL == "" {
		return fmt.Errorf("%w: request method and url are required", ErrInvalidSchedule)
	}
	return nil
}

func (s Schedule) validateTimeOfDay() error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("%w: hour must be 0-23", ErrInvalidSchedule)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("%w: minute must be 0-59", ErrInvalidSchedule)
	}
	return nil
}

// NextAfter computes the next execution instant. All date math is done
// in UTC so DST transitions never shift a daily or weekly slot.
//
// Interval schedules advance from the last execution when one exists,
// so a freshly registered job waits one full interval instead of
// stampeding at startup. Daily and weekly schedules are compiled into
// a standard cron expression and resolved with cron.Next, which always
// yields an instant strictly in the future.
func (s Schedule) NextAfter(now time.Time, last *time.Time) time.Time {
	now = now.UTC()

	switch s.Kind {
	case KindInterval:
		base := now
		if last != nil {
			base = last.UTC()
		}
		return base.Add(time.Duration(s.IntervalSeconds) * time.Second)
	case KindDaily, KindWeekly:
		sched, err := cron.ParseStandard(s.cronExpr())
		if err != nil {
			// Expression was validated at registration; this should never happen.
			return now.Add(time.Hour)
		}
		return sched.Next(now)
	case KindOnceAt:
		return s.RunAt.UTC()
	default:
		return now.Add(time.Hour)
	}
}

func (s Schedule) cronExpr() string {
	if s.Kind == KindWeekly {
		return fmt.Sprintf("%d %d * * %d", s.Minute, s.Hour, int(*s.DayOfWeek))
	}
	return fmt.Sprintf("%d %d * * *", s.Minute, s.Hour)
}
