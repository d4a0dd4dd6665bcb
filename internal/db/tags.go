package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/okvist/skein/internal/model"
)

// Tag names are stored normalized (lowercase, no @ prefix); display
// code puts the @ back.

// GetTags returns all tags
func (db *DB) GetTags() ([]model.Tag, error) {
	rows, err := db.Query(`
		SELECT id, name, color, created_at
		FROM tags
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return db.scanTags(rows)
}

// GetTagByName returns a tag by normalized name, or nil
func (db *DB) GetTagByName(name string) (*model.Tag, error) {
	var t model.Tag
	var color *string

	err := db.QueryRow(`
		SELECT id, name, color, created_at
		FROM tags WHERE name = ?
	`, model.NormalizeTag(name)).Scan(&t.ID, &t.Name, &color, &t.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if color != nil {
		t.Color = *color
	}

	return &t, nil
}

// CreateTag creates a new tag
func (db *DB) CreateTag(name, color string) (*model.Tag, error) {
	name = model.NormalizeTag(name)
	id := uuid.New().String()
	now := time.Now()

	_, err := db.Exec(`
		INSERT INTO tags (id, name, color, created_at)
		VALUES (?, ?, ?, ?)
	`, id, name, color, now)

	if err != nil {
		return nil, err
	}

	return &model.Tag{
		ID:        id,
		Name:      name,
		Color:     color,
		CreatedAt: now,
	}, nil
}

// GetOrCreateTag gets a tag by name or creates it if it doesn't exist
func (db *DB) GetOrCreateTag(name, color string) (*model.Tag, error) {
	tag, err := db.GetTagByName(name)
	if err != nil {
		return nil, err
	}
	if tag != nil {
		return tag, nil
	}
	return db.CreateTag(name, color)
}

// DeleteTag deletes a tag and its task links
func (db *DB) DeleteTag(id string) error {
	_, err := db.Exec(`DELETE FROM tags WHERE id = ?`, id)
	return err
}

// GetTaskTags returns tags for a task
func (db *DB) GetTaskTags(taskID string) ([]model.Tag, error) {
	rows, err := db.Query(`
		SELECT t.id, t.name, t.color, t.created_at
		FROM tags t
		JOIN task_tags tt ON t.id = tt.tag_id
		WHERE tt.task_id = ?
		ORDER BY t.name
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return db.scanTags(rows)
}

// AddTagToTask adds a tag to a task
func (db *DB) AddTagToTask(taskID, tagID string) error {
	_, err := db.Exec(`
		INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)
	`, taskID, tagID)
	return err
}

// RemoveTagFromTask removes a tag from a task
func (db *DB) RemoveTagFromTask(taskID, tagID string) error {
	_, err := db.Exec(`
		DELETE FROM task_tags WHERE task_id = ? AND tag_id = ?
	`, taskID, tagID)
	return err
}

// SetTaskTags replaces all tags on a task
func (db *DB) SetTaskTags(taskID string, tagIDs []string) error {
	return db.Transaction(func(tx *sql.Tx) error {
		// Remove existing tags
		_, err := tx.Exec(`DELETE FROM task_tags WHERE task_id = ?`, taskID)
		if err != nil {
			return err
		}

		// Add new tags
		for _, tagID := range tagIDs {
			_, err = tx.Exec(`INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?)`, taskID, tagID)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

func (db *DB) scanTags(rows *sql.Rows) ([]model.Tag, error) {
	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		var color *string
		err := rows.Scan(&t.ID, &t.Name, &color, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		if color != nil {
			t.Color = *color
		}
		tags = append(tags, t)
	}

	return tags, rows.Err()
}
