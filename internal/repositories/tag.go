package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/shared"
)

// TagRepository handles tag storage and task/tag assignments.
type TagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new TagRepository with the given database connection
func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

// Resolve returns tags for the given names, creating any that don't exist
// yet. Remote categories resolve through here during reconciliation.
func (r *TagRepository) Resolve(names []string) ([]*models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}

	rows, err := r.db.Query("SELECT id, name FROM tags WHERE name IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	var tags []*models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		existing[tag.Name] = true
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, name := range names {
		if existing[name] {
			continue
		}
		tag := &models.Tag{ID: shared.GenerateID(), Name: name}
		if _, err := r.db.Exec("INSERT INTO tags (id, name) VALUES (?, ?)", tag.ID, tag.Name); err != nil {
			return nil, fmt.Errorf("failed to insert tag: %w", err)
		}
		existing[name] = true
		tags = append(tags, tag)
	}

	return tags, nil
}

// Apply replaces a task's tag assignments with the given set.
func (r *TagRepository) Apply(taskID int64, tags []*models.Tag) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM task_tags WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("failed to clear task tags: %w", err)
	}

	for _, tag := range tags {
		if _, err := tx.Exec("INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?)", taskID, tag.ID); err != nil {
			return fmt.Errorf("failed to assign tag: %w", err)
		}
	}

	return tx.Commit()
}

// Names returns the tag names assigned to a task, for outbound conversion
// into remote categories.
func (r *TagRepository) Names(taskID int64) ([]string, error) {
	query := `
		SELECT t.name
		FROM tags t
		JOIN task_tags tt ON tt.tag_id = t.id
		WHERE tt.task_id = ?
		ORDER BY t.name ASC
	`

	rows, err := r.db.Query(query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return names, nil
}

// SettingsRepository is a small key/value store for engine-level settings,
// currently the provider-registered default list.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new SettingsRepository with the given database connection
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// DefaultListKey names the setting holding the user's default list id.
const DefaultListKey = "default_list"

// Get returns the value for a key, or the empty string when unset.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query setting: %w", err)
	}
	return value, nil
}

// Set upserts the value for a key.
func (r *SettingsRepository) Set(key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := r.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to write setting: %w", err)
	}
	return nil
}
