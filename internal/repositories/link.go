package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/tasksync/internal/models"
)

// LinkRepository handles CRUD for task links, the join records mapping a
// local task to its remote identity within one list.
type LinkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a new LinkRepository with the given database connection
func NewLinkRepository(db *sql.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a new link and assigns its generated ID.
func (r *LinkRepository) Create(link *models.TaskLink) error {
	query := `
		INSERT INTO task_links (task_id, list_id, remote_id, remote_parent, etag, last_sync, moved)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		link.TaskID,
		link.ListID,
		link.RemoteID,
		link.RemoteParent,
		link.ETag,
		link.LastSync,
		link.Moved,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task link: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get link id: %w", err)
	}
	link.ID = id

	return nil
}

// Update rewrites a link's remote identity and bookkeeping fields.
func (r *LinkRepository) Update(link *models.TaskLink) error {
	query := `
		UPDATE task_links
		SET remote_id = ?, remote_parent = ?, etag = ?, last_sync = ?, moved = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		link.RemoteID,
		link.RemoteParent,
		link.ETag,
		link.LastSync,
		link.Moved,
		link.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task link: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task link not found: %d", link.ID)
	}

	return nil
}

// Delete removes a link by ID.
func (r *LinkRepository) Delete(id int64) error {
	if _, err := r.db.Exec("DELETE FROM task_links WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete task link: %w", err)
	}
	return nil
}

// GetByTask retrieves the link for a task within one list.
// Returns nil without error when the task has no link in the list.
func (r *LinkRepository) GetByTask(listID string, taskID int64) (*models.TaskLink, error) {
	query := linkSelect + " WHERE list_id = ? AND task_id = ?"
	return nilOnNoRows(scanLink(r.db.QueryRow(query, listID, taskID).Scan))
}

// GetByRemoteID retrieves the link for a remote identity within one list.
// Returns nil without error when the remote task was never seen.
func (r *LinkRepository) GetByRemoteID(listID, remoteID string) (*models.TaskLink, error) {
	query := linkSelect + " WHERE list_id = ? AND remote_id = ?"
	return nilOnNoRows(scanLink(r.db.QueryRow(query, listID, remoteID).Scan))
}

// GetByTasks retrieves links for the given task IDs within one list.
func (r *LinkRepository) GetByTasks(listID string, taskIDs []int64) ([]*models.TaskLink, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(taskIDs)), ",")
	args := []any{listID}
	for _, id := range taskIDs {
		args = append(args, id)
	}

	query := linkSelect + " WHERE list_id = ? AND task_id IN (" + placeholders + ")"
	return r.queryLinks(query, args...)
}

// GetMoved retrieves links flagged as moved out of the given list. Their
// remote resources must be deleted before the task is recreated elsewhere.
func (r *LinkRepository) GetMoved(listID string) ([]*models.TaskLink, error) {
	query := linkSelect + " WHERE list_id = ? AND moved = 1"
	return r.queryLinks(query, listID)
}

// ListByList retrieves every link in the given list.
func (r *LinkRepository) ListByList(listID string) ([]*models.TaskLink, error) {
	query := linkSelect + " WHERE list_id = ?"
	return r.queryLinks(query, listID)
}

// RemoteIDs returns the set of non-empty remote IDs known for the list.
func (r *LinkRepository) RemoteIDs(listID string) (map[string]bool, error) {
	rows, err := r.db.Query("SELECT remote_id FROM task_links WHERE list_id = ? AND remote_id != ''", listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query remote ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan remote id: %w", err)
		}
		ids[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// DeleteByTasks removes every link (in any list) for the given task IDs.
func (r *LinkRepository) DeleteByTasks(taskIDs []int64) error {
	if len(taskIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(taskIDs)), ",")
	args := make([]any, len(taskIDs))
	for i, id := range taskIDs {
		args[i] = id
	}

	if _, err := r.db.Exec("DELETE FROM task_links WHERE task_id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("failed to delete task links: %w", err)
	}

	return nil
}

func (r *LinkRepository) queryLinks(query string, args ...any) ([]*models.TaskLink, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task links: %w", err)
	}
	defer rows.Close()

	var links []*models.TaskLink
	for rows.Next() {
		link, err := scanLink(rows.Scan)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return links, nil
}

const linkSelect = `
	SELECT id, task_id, list_id, remote_id, remote_parent, etag, last_sync, moved
	FROM task_links`

func scanLink(scan func(dest ...any) error) (*models.TaskLink, error) {
	var link models.TaskLink

	err := scan(
		&link.ID,
		&link.TaskID,
		&link.ListID,
		&link.RemoteID,
		&link.RemoteParent,
		&link.ETag,
		&link.LastSync,
		&link.Moved,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task link: %w", err)
	}

	return &link, nil
}

func nilOnNoRows(link *models.TaskLink, err error) (*models.TaskLink, error) {
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return link, err
}
