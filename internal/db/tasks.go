package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okvist/skein/internal/model"
)

const taskColumns = `id, title, notes, done, priority, project_id, parent_id,
       start_date, end_date, due_date, completed_at,
       estimate, quantity, unit, productivity,
       archived, position, created_at, updated_at`

// ListTasks returns every non-archived task, parents and subtasks
// alike, in position order. The graph engine is built from this plus
// ListDependencies.
func (db *DB) ListTasks() ([]model.Task, error) {
	rows, err := db.Query(`
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE archived = 0
		ORDER BY position, created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return db.scanTasks(rows)
}

// GetTask returns a single task by ID
func (db *DB) GetTask(id string) (*model.Task, error) {
	row := db.QueryRow(`
		SELECT `+taskColumns+`
		FROM tasks WHERE id = ?
	`, id)

	t, err := db.scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// FindTask resolves an ID prefix or an exact title to a single task.
// Ambiguous or unknown input returns an error naming the problem.
func (db *DB) FindTask(ref string) (*model.Task, error) {
	rows, err := db.Query(`
		SELECT `+taskColumns+`
		FROM tasks
		WHERE archived = 0 AND (id LIKE ? OR title = ?)
		ORDER BY position, created_at
	`, ref+"%", ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches, err := db.scanTasks(rows)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no task matches %q", ref)
	case 1:
		return &matches[0], nil
	default:
		var ids []string
		for _, m := range matches {
			ids = append(ids, m.ID[:8])
		}
		return nil, fmt.Errorf("%q is ambiguous: %s", ref, strings.Join(ids, ", "))
	}
}

// InsertTask writes a new task. Fills in the ID, timestamps, the inbox
// project, and a position after the task's siblings when those are
// unset.
func (db *DB) InsertTask(t model.Task) (*model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if !model.ValidPriority(t.Priority) {
		t.Priority = model.PriorityMedium
	}
	if t.ProjectID == nil {
		inbox := "inbox"
		t.ProjectID = &inbox
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	if t.Position == 0 {
		var maxPos sql.NullInt64
		db.QueryRow(`SELECT MAX(position) FROM tasks WHERE parent_id IS ?`, t.ParentID).Scan(&maxPos)
		if maxPos.Valid {
			t.Position = int(maxPos.Int64) + 1
		}
	}

	_, err := db.Exec(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Notes, boolInt(t.Done), t.Priority, t.ProjectID, t.ParentID,
		timeStr(t.StartDate), timeStr(t.EndDate), timeStr(t.DueDate), timeStr(t.CompletedAt),
		t.Estimate, t.Quantity, t.Unit, t.Productivity,
		boolInt(t.Archived), t.Position, now, now)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a new task with defaults
func (db *DB) CreateTask(title string, projectID *string) (*model.Task, error) {
	return db.InsertTask(model.Task{Title: title, ProjectID: projectID})
}

// CreateSubtask creates a subtask under a parent task. The subtask
// starts in the parent's project.
func (db *DB) CreateSubtask(title, parentID string) (*model.Task, error) {
	var projectID *string
	db.QueryRow(`SELECT project_id FROM tasks WHERE id = ?`, parentID).Scan(&projectID)

	return db.InsertTask(model.Task{Title: title, ParentID: &parentID, ProjectID: projectID})
}

// UpdateTask rewrites every editable field of a task
func (db *DB) UpdateTask(t *model.Task) error {
	now := time.Now()
	t.UpdatedAt = now
	_, err := db.Exec(`
		UPDATE tasks SET
			title = ?, notes = ?, priority = ?, project_id = ?,
			start_date = ?, end_date = ?, due_date = ?,
			estimate = ?, quantity = ?, unit = ?, productivity = ?,
			updated_at = ?
		WHERE id = ?
	`, t.Title, t.Notes, t.Priority, t.ProjectID,
		timeStr(t.StartDate), timeStr(t.EndDate), timeStr(t.DueDate),
		t.Estimate, t.Quantity, t.Unit, t.Productivity,
		now, t.ID)
	return err
}

// UpdateTaskTitle updates a task's title
func (db *DB) UpdateTaskTitle(id, title string) error {
	now := time.Now()
	_, err := db.Exec(`UPDATE tasks SET title = ?, updated_at = ? WHERE id = ?`, title, now, id)
	return err
}

// UpdateTaskPriority updates a task's priority
func (db *DB) UpdateTaskPriority(id string, priority model.Priority) error {
	now := time.Now()
	_, err := db.Exec(`UPDATE tasks SET priority = ?, updated_at = ? WHERE id = ?`, priority, now, id)
	return err
}

// SetTaskDone writes the completion flag and timestamp. Part of the
// graph engine's commit interface.
func (db *DB) SetTaskDone(id string, done bool, completedAt *time.Time) error {
	now := time.Now()
	_, err := db.Exec(`UPDATE tasks SET done = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		boolInt(done), timeStr(completedAt), now, id)
	return err
}

// UpdateTaskParent reparents a task in one statement: parent, position
// in the new sibling list, and the project it inherits. Part of the
// graph engine's commit interface.
func (db *DB) UpdateTaskParent(taskID string, parentID *string, position int, projectID *string) error {
	now := time.Now()
	_, err := db.Exec(`
		UPDATE tasks SET parent_id = ?, position = ?, project_id = ?, updated_at = ?
		WHERE id = ?
	`, parentID, position, projectID, now, taskID)
	return err
}

// SetTasksProject assigns all given tasks to a project in one
// transaction. Callers pass a task together with its subtree so
// subtasks keep living in their parent's project.
func (db *DB) SetTasksProject(ids []string, projectID *string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	return db.Transaction(func(tx *sql.Tx) error {
		for _, id := range ids {
			_, err := tx.Exec(`UPDATE tasks SET project_id = ?, updated_at = ? WHERE id = ?`,
				projectID, now, id)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ArchiveTask hides a task from the universe without deleting it
func (db *DB) ArchiveTask(id string) error {
	now := time.Now()
	_, err := db.Exec(`UPDATE tasks SET archived = 1, updated_at = ? WHERE id = ?`, now, id)
	return err
}

// DeleteTasks removes tasks by ID in one transaction. The schema
// cascades to subtask rows, dependency edges, tag links, and time
// entries; the engine passes the full subtree anyway so the store
// never has to recurse.
func (db *DB) DeleteTasks(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return db.Transaction(func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// Helper functions

func (db *DB) scanTasks(rows *sql.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := db.scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (db *DB) scanTask(row *sql.Row) (*model.Task, error) {
	return db.scanTaskRow(row)
}

func (db *DB) scanTaskRow(s scanner) (*model.Task, error) {
	var t model.Task
	var done, archived int
	var projectID, parentID *string
	var startDate, endDate, dueDate, completedAt *string

	err := s.Scan(
		&t.ID, &t.Title, &t.Notes, &done, &t.Priority,
		&projectID, &parentID,
		&startDate, &endDate, &dueDate, &completedAt,
		&t.Estimate, &t.Quantity, &t.Unit, &t.Productivity,
		&archived, &t.Position, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Done = done == 1
	t.Archived = archived == 1
	t.ProjectID = projectID
	t.ParentID = parentID
	t.StartDate = parseTimeStr(startDate)
	t.EndDate = parseTimeStr(endDate)
	t.DueDate = parseTimeStr(dueDate)
	t.CompletedAt = parseTimeStr(completedAt)

	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timeStr renders an optional timestamp for a TEXT column. NULL stays
// NULL.
func timeStr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parseTimeStr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &parsed
}
