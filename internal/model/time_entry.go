package model

import (
	"time"
)

// TimeEntry represents a time tracking entry. Entries are immutable once
// closed; Personnel records how many people worked the interval.
type TimeEntry struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	Note      string     `json:"note,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Duration  *int       `json:"duration,omitempty"` // Seconds
	Personnel int        `json:"personnel"`
	CreatedAt time.Time  `json:"created_at"`
}

// CalculatedDuration returns the duration in seconds.
// If Duration is set, returns that; otherwise calculates from StartedAt/EndedAt
func (te *TimeEntry) CalculatedDuration() int {
	if te.Duration != nil {
		return *te.Duration
	}
	if te.EndedAt == nil {
		// Still running, calculate from now
		return int(time.Since(te.StartedAt).Seconds())
	}
	return int(te.EndedAt.Sub(te.StartedAt).Seconds())
}

// PersonSeconds returns duration scaled by the people who worked it.
func (te *TimeEntry) PersonSeconds() int {
	n := te.Personnel
	if n < 1 {
		n = 1
	}
	return te.CalculatedDuration() * n
}

// IsRunning returns true if this time entry is still active
func (te *TimeEntry) IsRunning() bool {
	return te.EndedAt == nil
}
