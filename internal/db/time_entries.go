package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/okvist/skein/internal/model"
)

// StartTimeEntry opens a timer on a task. Any entry still running is
// closed first; one timer runs at a time.
func (db *DB) StartTimeEntry(taskID string, personnel int, note string) (*model.TimeEntry, error) {
	if personnel < 1 {
		personnel = 1
	}
	if _, err := db.StopRunningEntries(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now()

	_, err := db.Exec(`
		INSERT INTO time_entries (id, task_id, note, started_at, personnel, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, taskID, note, now, personnel, now)
	if err != nil {
		return nil, err
	}

	return &model.TimeEntry{
		ID:        id,
		TaskID:    taskID,
		Note:      note,
		StartedAt: now,
		Personnel: personnel,
		CreatedAt: now,
	}, nil
}

// StopRunningEntries closes every open timer and returns the closed
// entries with their duration filled in.
func (db *DB) StopRunningEntries() ([]model.TimeEntry, error) {
	rows, err := db.Query(`
		SELECT id, task_id, note, started_at, ended_at, duration, personnel, created_at
		FROM time_entries
		WHERE ended_at IS NULL
	`)
	if err != nil {
		return nil, err
	}
	open, err := db.scanTimeEntries(rows)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var closed []model.TimeEntry
	for _, te := range open {
		duration := int(now.Sub(te.StartedAt).Seconds())
		_, err := db.Exec(`
			UPDATE time_entries SET ended_at = ?, duration = ? WHERE id = ?
		`, now, duration, te.ID)
		if err != nil {
			return closed, err
		}
		te.EndedAt = &now
		te.Duration = &duration
		closed = append(closed, te)
	}
	return closed, nil
}

// ActiveTimeEntry returns the running timer, or nil when none is open.
func (db *DB) ActiveTimeEntry() (*model.TimeEntry, error) {
	row := db.QueryRow(`
		SELECT id, task_id, note, started_at, ended_at, duration, personnel, created_at
		FROM time_entries
		WHERE ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1
	`)
	te, err := db.scanTimeEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return te, err
}

// LogTimeEntry records a closed interval directly, for work that was
// not tracked live.
func (db *DB) LogTimeEntry(taskID string, startedAt, endedAt time.Time, personnel int, note string) (*model.TimeEntry, error) {
	if personnel < 1 {
		personnel = 1
	}
	id := uuid.New().String()
	now := time.Now()
	duration := int(endedAt.Sub(startedAt).Seconds())

	_, err := db.Exec(`
		INSERT INTO time_entries (id, task_id, note, started_at, ended_at, duration, personnel, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, taskID, note, startedAt, endedAt, duration, personnel, now)
	if err != nil {
		return nil, err
	}

	return &model.TimeEntry{
		ID:        id,
		TaskID:    taskID,
		Note:      note,
		StartedAt: startedAt,
		EndedAt:   &endedAt,
		Duration:  &duration,
		Personnel: personnel,
		CreatedAt: now,
	}, nil
}

// GetTaskTimeEntries returns a task's entries, newest first
func (db *DB) GetTaskTimeEntries(taskID string) ([]model.TimeEntry, error) {
	rows, err := db.Query(`
		SELECT id, task_id, note, started_at, ended_at, duration, personnel, created_at
		FROM time_entries
		WHERE task_id = ?
		ORDER BY started_at DESC
	`, taskID)
	if err != nil {
		return nil, err
	}
	return db.scanTimeEntries(rows)
}

// TimeLoggedSince sums closed seconds per task since the given moment.
func (db *DB) TimeLoggedSince(since time.Time) (map[string]int, error) {
	rows, err := db.Query(`
		SELECT task_id, SUM(duration)
		FROM time_entries
		WHERE duration IS NOT NULL AND started_at >= ?
		GROUP BY task_id
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var taskID string
		var total int
		if err := rows.Scan(&taskID, &total); err != nil {
			return nil, err
		}
		totals[taskID] = total
	}
	return totals, rows.Err()
}

func (db *DB) scanTimeEntries(rows *sql.Rows) ([]model.TimeEntry, error) {
	defer rows.Close()
	var entries []model.TimeEntry
	for rows.Next() {
		te, err := db.scanTimeEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *te)
	}
	return entries, rows.Err()
}

func (db *DB) scanTimeEntry(row *sql.Row) (*model.TimeEntry, error) {
	return db.scanTimeEntryRow(row)
}

func (db *DB) scanTimeEntryRow(s scanner) (*model.TimeEntry, error) {
	var te model.TimeEntry
	err := s.Scan(
		&te.ID, &te.TaskID, &te.Note, &te.StartedAt,
		&te.EndedAt, &te.Duration, &te.Personnel, &te.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &te, nil
}
