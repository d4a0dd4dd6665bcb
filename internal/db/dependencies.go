package db

import (
	"time"

	"github.com/okvist/skein/internal/graph"
	"github.com/okvist/skein/internal/model"
)

// The DB is the engine's commit side.
var _ graph.Store = (*DB)(nil)

// ListDependencies returns every dependency edge, grouped by task in
// insertion order. The graph engine is built from this plus ListTasks.
func (db *DB) ListDependencies() ([]model.Dependency, error) {
	rows, err := db.Query(`
		SELECT task_id, depends_on_id, position, created_at
		FROM task_dependencies
		ORDER BY task_id, position, created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []model.Dependency
	for rows.Next() {
		var d model.Dependency
		if err := rows.Scan(&d.TaskID, &d.DependsOnID, &d.Position, &d.CreatedAt); err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// GetTaskDependencies returns the tasks this task depends on, in
// insertion order
func (db *DB) GetTaskDependencies(taskID string) ([]model.Task, error) {
	rows, err := db.Query(`
		SELECT `+prefixedTaskColumns+`
		FROM tasks t
		JOIN task_dependencies td ON t.id = td.depends_on_id
		WHERE td.task_id = ?
		ORDER BY td.position, td.created_at
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return db.scanTasks(rows)
}

// InsertDependency writes one validated edge. The engine rejects
// duplicates before calling, so a primary-key violation here means the
// database diverged from the in-memory graph and surfaces as a
// persistence failure.
func (db *DB) InsertDependency(taskID, dependsOnID string, position int) error {
	_, err := db.Exec(`
		INSERT INTO task_dependencies (task_id, depends_on_id, position, created_at)
		VALUES (?, ?, ?, ?)
	`, taskID, dependsOnID, position, time.Now())
	return err
}

// DeleteDependency removes one edge
func (db *DB) DeleteDependency(taskID, dependsOnID string) error {
	_, err := db.Exec(`
		DELETE FROM task_dependencies WHERE task_id = ? AND depends_on_id = ?
	`, taskID, dependsOnID)
	return err
}

const prefixedTaskColumns = `t.id, t.title, t.notes, t.done, t.priority, t.project_id, t.parent_id,
       t.start_date, t.end_date, t.due_date, t.completed_at,
       t.estimate, t.quantity, t.unit, t.productivity,
       t.archived, t.position, t.created_at, t.updated_at`
