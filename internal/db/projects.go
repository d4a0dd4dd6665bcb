package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/okvist/skein/internal/model"
)

// GetProjects returns all non-archived projects
func (db *DB) GetProjects() ([]model.Project, error) {
	return db.queryProjects(`WHERE p.archived = 0`)
}

// AllProjects returns every project, archived ones included
func (db *DB) AllProjects() ([]model.Project, error) {
	return db.queryProjects(``)
}

func (db *DB) queryProjects(where string) ([]model.Project, error) {
	rows, err := db.Query(`
		SELECT p.id, p.name, p.color, p.status, p.start_date, p.due_date,
		       p.archived, p.position, p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM tasks WHERE project_id = p.id AND archived = 0) as task_count,
		       (SELECT COUNT(*) FROM tasks WHERE project_id = p.id AND archived = 0 AND done = 1) as completed_count
		FROM projects p
		` + where + `
		ORDER BY p.position, p.created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		var archived int
		var color *string
		var startDate, dueDate *string
		err := rows.Scan(
			&p.ID, &p.Name, &color, &p.Status, &startDate, &dueDate,
			&archived, &p.Position, &p.CreatedAt, &p.UpdatedAt,
			&p.TaskCount, &p.CompletedCount,
		)
		if err != nil {
			return nil, err
		}
		p.Archived = archived == 1
		if color != nil {
			p.Color = *color
		}
		p.StartDate = parseTimeStr(startDate)
		p.DueDate = parseTimeStr(dueDate)
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// GetProject returns a single project by ID
func (db *DB) GetProject(id string) (*model.Project, error) {
	var p model.Project
	var archived int
	var color *string
	var startDate, dueDate *string

	err := db.QueryRow(`
		SELECT id, name, color, status, start_date, due_date, archived, position, created_at, updated_at
		FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &color, &p.Status, &startDate, &dueDate,
		&archived, &p.Position, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Archived = archived == 1
	if color != nil {
		p.Color = *color
	}
	p.StartDate = parseTimeStr(startDate)
	p.DueDate = parseTimeStr(dueDate)

	return &p, nil
}

// GetProjectByName returns a project by exact name, or nil
func (db *DB) GetProjectByName(name string) (*model.Project, error) {
	var id string
	err := db.QueryRow(`SELECT id FROM projects WHERE name = ? AND archived = 0`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return db.GetProject(id)
}

// CreateProject creates a new project
func (db *DB) CreateProject(name, color string) (*model.Project, error) {
	id := uuid.New().String()
	now := time.Now()

	// Get max position
	var maxPos sql.NullInt64
	db.QueryRow("SELECT MAX(position) FROM projects").Scan(&maxPos)
	position := 0
	if maxPos.Valid {
		position = int(maxPos.Int64) + 1
	}

	_, err := db.Exec(`
		INSERT INTO projects (id, name, color, status, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, name, color, model.ProjectActive, position, now, now)

	if err != nil {
		return nil, err
	}

	return &model.Project{
		ID:        id,
		Name:      name,
		Color:     color,
		Status:    model.ProjectActive,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateProject updates a project's name and color
func (db *DB) UpdateProject(id, name, color string) error {
	now := time.Now()
	_, err := db.Exec(`
		UPDATE projects SET name = ?, color = ?, updated_at = ? WHERE id = ?
	`, name, color, now, id)
	return err
}

// SetProjectStatus moves a project through its lifecycle
func (db *DB) SetProjectStatus(id string, status model.ProjectStatus) error {
	now := time.Now()
	_, err := db.Exec(`
		UPDATE projects SET status = ?, updated_at = ? WHERE id = ?
	`, status, now, id)
	return err
}

// ArchiveProject archives a project
func (db *DB) ArchiveProject(id string) error {
	now := time.Now()
	_, err := db.Exec(`
		UPDATE projects SET archived = 1, updated_at = ? WHERE id = ?
	`, now, id)
	return err
}

// DeleteProject deletes a project (moves tasks to inbox)
func (db *DB) DeleteProject(id string) error {
	return db.Transaction(func(tx *sql.Tx) error {
		// Move tasks to inbox
		_, err := tx.Exec(`UPDATE tasks SET project_id = 'inbox' WHERE project_id = ?`, id)
		if err != nil {
			return err
		}

		// Delete project
		_, err = tx.Exec(`DELETE FROM projects WHERE id = ?`, id)
		return err
	})
}
