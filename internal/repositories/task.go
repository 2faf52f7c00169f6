package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/shared"
)

// TaskRepository handles CRUD for hierarchical local tasks.
//
// Two write paths exist on purpose: Save is the user-visible write and
// bumps the modification date, making the task dirty relative to its sync
// links; SaveSynced persists exactly what the reconciler computed without
// touching the modification date, so sync writes never re-dirty a task.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task and assigns its generated ID.
func (r *TaskRepository) Create(task *models.Task) error {
	now := shared.NowMillis()
	if task.CreationDate == 0 {
		task.CreationDate = now
	}
	if task.ModificationDate == 0 {
		task.ModificationDate = now
	}

	query := `
		INSERT INTO tasks (parent, title, notes, priority, due_date, has_due_time,
			completion_date, creation_date, modification_date, deleted, recurrence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		task.Parent,
		task.Title,
		task.Notes,
		task.Priority,
		task.DueDate,
		task.HasDueTime,
		task.CompletionDate,
		task.CreationDate,
		task.ModificationDate,
		task.Deleted,
		task.Recurrence,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get task id: %w", err)
	}
	task.ID = id

	return nil
}

// Get retrieves a task by ID.
func (r *TaskRepository) Get(id int64) (*models.Task, error) {
	query := taskSelect + " WHERE id = ?"
	task, err := scanTask(r.db.QueryRow(query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", shared.ErrTaskNotFound, id)
	}
	return task, err
}

// Save persists a user-visible edit and bumps the modification date,
// marking the task dirty for the next push.
func (r *TaskRepository) Save(task *models.Task) error {
	task.ModificationDate = shared.NowMillis()
	return r.write(task)
}

// SaveSynced persists the task exactly as given. Used when applying remote
// state; the write must not mark the task dirty.
func (r *TaskRepository) SaveSynced(task *models.Task) error {
	return r.write(task)
}

func (r *TaskRepository) write(task *models.Task) error {
	query := `
		UPDATE tasks
		SET parent = ?, title = ?, notes = ?, priority = ?, due_date = ?, has_due_time = ?,
			completion_date = ?, creation_date = ?, modification_date = ?, deleted = ?, recurrence = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		task.Parent,
		task.Title,
		task.Notes,
		task.Priority,
		task.DueDate,
		task.HasDueTime,
		task.CompletionDate,
		task.CreationDate,
		task.ModificationDate,
		task.Deleted,
		task.Recurrence,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", shared.ErrTaskNotFound, task.ID)
	}

	return nil
}

// MarkDeleted flags a task for remote deletion on the next push.
func (r *TaskRepository) MarkDeleted(id int64) error {
	query := "UPDATE tasks SET deleted = 1, modification_date = ? WHERE id = ?"
	if _, err := r.db.Exec(query, shared.NowMillis(), id); err != nil {
		return fmt.Errorf("failed to mark task deleted: %w", err)
	}
	return nil
}

// Children returns the IDs of a task's direct children.
func (r *TaskRepository) Children(parent int64) ([]int64, error) {
	rows, err := r.db.Query("SELECT id FROM tasks WHERE parent = ?", parent)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan child id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// Subtree returns the given task ID plus all of its descendants.
//
// The walk is breadth-first over a visited set so a corrupt,
// cyclically-parented hierarchy terminates instead of looping.
func (r *TaskRepository) Subtree(id int64) ([]int64, error) {
	visited := map[int64]bool{id: true}
	result := []int64{id}
	frontier := []int64{id}

	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]

		children, err := r.Children(next)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if visited[child] {
				continue
			}
			visited[child] = true
			result = append(result, child)
			frontier = append(frontier, child)
		}
	}

	return result, nil
}

// DeleteAll hard-deletes the given tasks and their tag assignments.
func (r *TaskRepository) DeleteAll(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := r.db.Exec("DELETE FROM task_tags WHERE task_id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("failed to delete task tags: %w", err)
	}
	if _, err := r.db.Exec("DELETE FROM tasks WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}

	return nil
}

// GetToPush returns tasks linked to the given list that are locally dirty
// or flagged deleted, ordered parents before children so a child's push can
// resolve its parent's freshly-assigned remote id.
func (r *TaskRepository) GetToPush(listID string) ([]*models.Task, error) {
	query := `
		SELECT t.id, t.parent, t.title, t.notes, t.priority, t.due_date, t.has_due_time,
			t.completion_date, t.creation_date, t.modification_date, t.deleted, t.recurrence
		FROM tasks t
		JOIN task_links l ON l.task_id = t.id
		WHERE l.list_id = ? AND (t.deleted = 1 OR t.modification_date > l.last_sync)
		ORDER BY t.parent ASC, t.id ASC
	`

	rows, err := r.db.Query(query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks to push: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

const taskSelect = `
	SELECT id, parent, title, notes, priority, due_date, has_due_time,
		completion_date, creation_date, modification_date, deleted, recurrence
	FROM tasks`

func scanTask(scan func(dest ...any) error) (*models.Task, error) {
	var task models.Task

	err := scan(
		&task.ID,
		&task.Parent,
		&task.Title,
		&task.Notes,
		&task.Priority,
		&task.DueDate,
		&task.HasDueTime,
		&task.CompletionDate,
		&task.CreationDate,
		&task.ModificationDate,
		&task.Deleted,
		&task.Recurrence,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	return &task, nil
}
