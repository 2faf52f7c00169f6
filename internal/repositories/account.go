package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/shared"
)

// AccountRepository handles CRUD for remote service accounts with soft
// delete support.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account with a generated ID and sequence.
func (r *AccountRepository) Create(account *models.Account) error {
	sequence, err := NextSequence(r.db, "accounts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	account.ID = shared.GenerateID()
	account.Sequence = sequence

	switch account.Type {
	case models.AccountMicrosoft, models.AccountGoogle, models.AccountCaldav:
	default:
		return fmt.Errorf("%w: unknown account type %q", shared.ErrInvalidInput, account.Type)
	}

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO accounts (id, sequence, account_type, username, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		account.ID,
		account.Sequence,
		account.Type,
		account.Username,
		account.Error,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// Get retrieves an account by ID, excluding soft-deleted accounts.
func (r *AccountRepository) Get(id string) (*models.Account, error) {
	query := `
		SELECT id, sequence, account_type, username, error, created_at, updated_at, deleted_at
		FROM accounts
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Update rewrites an account's mutable fields (username, error).
func (r *AccountRepository) Update(account *models.Account) error {
	now := time.Now()
	account.UpdatedAt = now

	query := `
		UPDATE accounts
		SET username = ?, error = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, account.Username, account.Error, now, account.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, account.ID)
	}

	return nil
}

// Delete soft-deletes an account by ID.
func (r *AccountRepository) Delete(id string) error {
	query := `
		UPDATE accounts
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}

	return nil
}

// List retrieves all live accounts, ordered by sequence.
func (r *AccountRepository) List() ([]*models.Account, error) {
	query := `
		SELECT id, sequence, account_type, username, error, created_at, updated_at, deleted_at
		FROM accounts
		WHERE deleted_at IS NULL
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) scanOne(row *sql.Row) (*models.Account, error) {
	account, err := scanAccount(row.Scan)
	if err == sql.ErrNoRows {
		return nil, shared.ErrAccountNotFound
	}
	return account, err
}

func scanAccount(scan func(dest ...any) error) (*models.Account, error) {
	var (
		account   models.Account
		deletedAt sql.NullTime
	)

	err := scan(
		&account.ID,
		&account.Sequence,
		&account.Type,
		&account.Username,
		&account.Error,
		&account.CreatedAt,
		&account.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	if deletedAt.Valid {
		account.DeletedAt = &deletedAt.Time
	}

	return &account, nil
}
