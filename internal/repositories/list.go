package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/shared"
)

// ListRepository handles CRUD for local mirrors of remote task lists.
type ListRepository struct {
	db *sql.DB
}

// NewListRepository creates a new ListRepository with the given database connection
func NewListRepository(db *sql.DB) *ListRepository {
	return &ListRepository{db: db}
}

// Create inserts a new list mirror with a generated ID.
func (r *ListRepository) Create(list *models.TaskList) error {
	list.ID = shared.GenerateID()

	query := `
		INSERT INTO task_lists (id, account_id, remote_id, name, access, sync_cursor, last_sync, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		list.ID,
		list.AccountID,
		list.RemoteID,
		list.Name,
		list.Access,
		list.SyncCursor,
		list.LastSync,
		list.Default,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task list: %w", err)
	}

	return nil
}

// Get retrieves a list mirror by ID.
func (r *ListRepository) Get(id string) (*models.TaskList, error) {
	query := listSelect + " WHERE id = ?"
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByRemoteID retrieves a list mirror by account and remote identity.
// Returns nil without error when no mirror exists yet.
func (r *ListRepository) GetByRemoteID(accountID, remoteID string) (*models.TaskList, error) {
	query := listSelect + " WHERE account_id = ? AND remote_id = ?"
	list, err := r.scanOne(r.db.QueryRow(query, accountID, remoteID))
	if err == shared.ErrListNotFound {
		return nil, nil
	}
	return list, err
}

// ListByAccount retrieves all list mirrors for one account.
func (r *ListRepository) ListByAccount(accountID string) ([]*models.TaskList, error) {
	query := listSelect + " WHERE account_id = ? ORDER BY name ASC"

	rows, err := r.db.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task lists: %w", err)
	}
	defer rows.Close()

	var lists []*models.TaskList
	for rows.Next() {
		list, err := scanList(rows.Scan)
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return lists, nil
}

// Update rewrites a list mirror's mutable fields.
func (r *ListRepository) Update(list *models.TaskList) error {
	query := `
		UPDATE task_lists
		SET name = ?, access = ?, sync_cursor = ?, last_sync = ?, is_default = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		list.Name,
		list.Access,
		list.SyncCursor,
		list.LastSync,
		list.Default,
		list.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task list: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrListNotFound, list.ID)
	}

	return nil
}

// Delete removes a list mirror. The caller is responsible for cascading
// task and link deletion first.
func (r *ListRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM task_lists WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete task list: %w", err)
	}
	return nil
}

const listSelect = `
	SELECT id, account_id, remote_id, name, access, sync_cursor, last_sync, is_default
	FROM task_lists`

func (r *ListRepository) scanOne(row *sql.Row) (*models.TaskList, error) {
	list, err := scanList(row.Scan)
	if err == sql.ErrNoRows {
		return nil, shared.ErrListNotFound
	}
	return list, err
}

func scanList(scan func(dest ...any) error) (*models.TaskList, error) {
	var list models.TaskList

	err := scan(
		&list.ID,
		&list.AccountID,
		&list.RemoteID,
		&list.Name,
		&list.Access,
		&list.SyncCursor,
		&list.LastSync,
		&list.Default,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task list: %w", err)
	}

	return &list, nil
}
