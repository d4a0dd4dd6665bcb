package schedule

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHours_FullWeek(t *testing.T) {
	w := Default()

	// Mon Jan 5 2026 through Fri Jan 9 2026: five workdays.
	got := w.Hours(date(2026, time.January, 5), date(2026, time.January, 9))
	if got != 40 {
		t.Errorf("expected 40 hours, got %v", got)
	}

	// Same window extended over the weekend adds nothing.
	got = w.Hours(date(2026, time.January, 5), date(2026, time.January, 11))
	if got != 40 {
		t.Errorf("expected 40 hours across the weekend, got %v", got)
	}

	// Saturday to Sunday alone holds zero.
	got = w.Hours(date(2026, time.January, 10), date(2026, time.January, 11))
	if got != 0 {
		t.Errorf("expected 0 weekend hours, got %v", got)
	}
}

func TestHours_ReversedAndSingleDay(t *testing.T) {
	w := Default()

	if got := w.Hours(date(2026, time.January, 9), date(2026, time.January, 5)); got != 0 {
		t.Errorf("reversed window: expected 0, got %v", got)
	}
	if got := w.Hours(date(2026, time.January, 5), date(2026, time.January, 5)); got != 8 {
		t.Errorf("single workday: expected 8, got %v", got)
	}
}

func TestHours_CustomWorkweek(t *testing.T) {
	// Six ten-hour days, Sundays off.
	w := Workweek{
		HoursPerDay: 10,
		Days: map[time.Weekday]bool{
			time.Monday: true, time.Tuesday: true, time.Wednesday: true,
			time.Thursday: true, time.Friday: true, time.Saturday: true,
		},
	}

	got := w.Hours(date(2026, time.January, 5), date(2026, time.January, 11))
	if got != 60 {
		t.Errorf("expected 60 hours, got %v", got)
	}
}

func TestEffortHours(t *testing.T) {
	// 120 units at 1.5 units per hour is 80 person hours.
	if got := EffortHours(120, 1.5); got != 80 {
		t.Errorf("expected 80, got %v", got)
	}
	if got := EffortHours(120, 0); got != 0 {
		t.Errorf("zero rate: expected 0, got %v", got)
	}
	if got := EffortHours(0, 1.5); got != 0 {
		t.Errorf("zero quantity: expected 0, got %v", got)
	}
}

func TestPersonnel_CeilingAndFloor(t *testing.T) {
	// 80 hours of effort in a 40 hour window needs 2 people.
	if got := Personnel(80, 40); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	// 81 hours rounds up to 3.
	if got := Personnel(81, 40); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	// Fits with room to spare: still one person.
	if got := Personnel(10, 40); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	// No window, no answer.
	if got := Personnel(10, 0); got != 0 {
		t.Errorf("expected 0 for empty window, got %d", got)
	}
}

func TestSpan(t *testing.T) {
	w := Default()

	if got := w.Span(80, 2); got != 5 {
		t.Errorf("expected 5 days, got %v", got)
	}
	if got := w.Span(80, 0); got != 0 {
		t.Errorf("expected 0 for no crew, got %v", got)
	}
}

func TestFinish_WalksOverWeekend(t *testing.T) {
	w := Default()

	// 32 hours for one person starting Thursday Jan 8 2026:
	// Thu + Fri + (weekend skipped) + Mon + Tue.
	got := w.Finish(date(2026, time.January, 8), 32, 1)
	want := date(2026, time.January, 13)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Two people halve the walk: Thu + Fri.
	got = w.Finish(date(2026, time.January, 8), 32, 2)
	want = date(2026, time.January, 9)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Starting on a Saturday rolls into the next week.
	got = w.Finish(date(2026, time.January, 10), 8, 1)
	want = date(2026, time.January, 12)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFinish_NoWorkdaysConfigured(t *testing.T) {
	w := Workweek{HoursPerDay: 8, Days: map[time.Weekday]bool{}}

	// The walk must terminate even though no day burns effort.
	got := w.Finish(date(2026, time.January, 5), 8, 1)
	if got.Before(date(2026, time.January, 5)) {
		t.Errorf("unexpected date %v", got)
	}
}
