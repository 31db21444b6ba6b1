package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/olmedhq/erp-gateway/internal/domain"
)

var validRequest = domain.RequestTemplate{
	Method: "POST",
	URL:    "https://erp.olmed.example/api/orders/sync",
}

func intervalSchedule(seconds int) domain.Schedule {
	return domain.Schedule{
		Kind:            domain.KindInterval,
		IntervalSeconds: seconds,
		Request:         validRequest,
	}
}

// ---- Validate ----

func TestValidate_IntervalRequiresPositiveSeconds(t *testing.T) {
	s := intervalSchedule(0)
	if err := s.Validate(); !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Fatalf("want ErrInvalidSchedule, got %v", err)
	}

	s = intervalSchedule(30)
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DailyRejectsOutOfRangeTime(t *testing.T) {
	s := domain.Schedule{Kind: domain.KindDaily, Hour: 24, Minute: 0, Request: validRequest}
	if err := s.Validate(); !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Fatalf("want ErrInvalidSchedule for hour 24, got %v", err)
	}

	s = domain.Schedule{Kind: domain.KindDaily, Hour: 23, Minute: 60, Request: validRequest}
	if err := s.Validate(); !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Fatalf("want ErrInvalidSchedule for minute 60, got %v", err)
	}
}

func TestValidate_WeeklyRequiresDayOfWeek(t *testing.T) {
	s := domain.Schedule{Kind: domain.KindWeekly, Hour: 9, Minute: 30, Request: validRequest}
	if err := s.Validate(); !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Fatalf("want ErrInvalidSchedule for missing day_of_week, got %v", err)
	}
}

func TestValidate_OnceAtRequiresRunAt(t *testing.T) {
	s := domain.Schedule{Kind: domain.KindOnceAt, Request: validRequest}
	if err := s.Validate(); !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Fatalf("want ErrInvalidSchedule, got %v", err)
	}
}

func TestValidate_UnknownKindRejected(t *testing.T) {
	s := domain.Schedule{Kind: "hourly", Request: validRequest}
	if err := s.Validate(); !errors.Is(err, domain.ErrUnknownKind) {
		t.Fatalf("want ErrUnknownKind, got %v", err)
	}
}

func TestValidate_RequestTemplateRequired(t *testing.T) {
	s := domain.Schedule{Kind: domain.KindInterval, IntervalSeconds: 30}
	if err := s.Validate(); !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Fatalf("want ErrInvalidSchedule, got %v", err)
	}
}

// ---- NextAfter ----

func TestNextAfter_IntervalFirstComputationWaitsOneInterval(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := intervalSchedule(30)

	next := s.NextAfter(now, nil)
	if want := now.Add(30 * time.Second); !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
}

func TestNextAfter_IntervalAdvancesFromLastExecution(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 31, 0, time.UTC)
	last := now
	s := intervalSchedule(30)

	next := s.NextAfter(now, &last)
	if want := last.Add(30 * time.Second); !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
}

func TestNextAfter_DailyStrictlyFutureAtExactTime(t *testing.T) {
	s := domain.Schedule{Kind: domain.KindDaily, Hour: 6, Minute: 15, Request: validRequest}

	// Before today's slot: fires today.
	now := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)
	next := s.NextAfter(now, nil)
	if want := time.Date(2025, 3, 10, 6, 15, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}

	// Exactly on the slot: rolls to tomorrow, never "now".
	now = time.Date(2025, 3, 10, 6, 15, 0, 0, time.UTC)
	next = s.NextAfter(now, nil)
	if want := time.Date(2025, 3, 11, 6, 15, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}

	// After the slot: tomorrow.
	now = time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	next = s.NextAfter(now, nil)
	if want := time.Date(2025, 3, 11, 6, 15, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
}

func TestNextAfter_WeeklyLandsOnConfiguredDay(t *testing.T) {
	wednesday := time.Wednesday
	s := domain.Schedule{
		Kind:      domain.KindWeekly,
		DayOfWeek: &wednesday,
		Hour:      9,
		Minute:    30,
		Request:   validRequest,
	}

	// Monday: fires the coming Wednesday.
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) // a Monday
	next := s.NextAfter(now, nil)
	if want := time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
	if next.Weekday() != time.Wednesday {
		t.Fatalf("want Wednesday, got %v", next.Weekday())
	}

	// Wednesday after the slot has passed: rolls a full week.
	now = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	next = s.NextAfter(now, nil)
	if want := time.Date(2025, 3, 19, 9, 30, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
	if !next.After(now) {
		t.Fatal("next execution must be strictly in the future")
	}
}

func TestNextAfter_OnceAtReturnsFixedInstant(t *testing.T) {
	runAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := domain.Schedule{Kind: domain.KindOnceAt, RunAt: runAt, Request: validRequest}

	next := s.NextAfter(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), nil)
	if !next.Equal(runAt) {
		t.Fatalf("want %v, got %v", runAt, next)
	}
}
