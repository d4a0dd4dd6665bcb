// Package schedule turns task estimates into calendar answers: how
// many work hours a date window holds, how much effort a quantity
// implies, how many people that takes, and when the work lands. All
// functions are pure; the workweek comes from config.
package schedule

import (
	"math"
	"time"
)

// Workweek describes the working calendar: which weekdays count and
// how many hours each contributes.
type Workweek struct {
	HoursPerDay float64
	Days        map[time.Weekday]bool
}

// Default returns the standard workweek: Monday through Friday, eight
// hours a day.
func Default() Workweek {
	return Workweek{
		HoursPerDay: 8,
		Days: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
	}
}

// IsWorkday reports whether the date falls on a working weekday.
func (w Workweek) IsWorkday(d time.Time) bool {
	return w.Days[d.Weekday()]
}

// Hours returns the work hours available between from and to, both
// days included. A reversed or empty window holds zero hours.
func (w Workweek) Hours(from, to time.Time) float64 {
	from = dateOnly(from)
	to = dateOnly(to)
	if to.Before(from) {
		return 0
	}

	hours := 0.0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if w.IsWorkday(d) {
			hours += w.HoursPerDay
		}
	}
	return hours
}

// EffortHours converts a quantity at a production rate into person
// hours. A rate of zero or less yields zero; there is nothing sensible
// to divide by.
func EffortHours(quantity, perHour float64) float64 {
	if perHour <= 0 || quantity <= 0 {
		return 0
	}
	return quantity / perHour
}

// Personnel returns how many people it takes to fit effortHours into
// windowHours, rounded up, never less than one. A closed window (zero
// hours) returns zero: no head count makes it fit.
func Personnel(effortHours, windowHours float64) int {
	if windowHours <= 0 {
		return 0
	}
	n := int(math.Ceil(effortHours / windowHours))
	if n < 1 {
		return 1
	}
	return n
}

// Span returns the working days a crew of the given size needs for the
// effort.
func (w Workweek) Span(effortHours float64, personnel int) float64 {
	if personnel < 1 || w.HoursPerDay <= 0 {
		return 0
	}
	return effortHours / (float64(personnel) * w.HoursPerDay)
}

// Finish walks the working calendar from start and returns the day the
// effort is burned down by a crew of the given size. Starting on a
// weekend rolls forward to the next workday first.
func (w Workweek) Finish(start time.Time, effortHours float64, personnel int) time.Time {
	day := dateOnly(start)
	if personnel < 1 || w.HoursPerDay <= 0 {
		return day
	}

	perDay := float64(personnel) * w.HoursPerDay
	remaining := effortHours

	// The guard bounds the walk when the workweek has no days at all.
	for i := 0; i < 36500; i++ {
		if w.IsWorkday(day) {
			remaining -= perDay
			if remaining <= 0 {
				return day
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
