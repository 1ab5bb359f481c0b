package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/edupanel/apiserver/types"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (types.Account, error) {
	const query = `
		SELECT id, email, role, full_name, department, avatar_url,
		       email_verified, status, password_hash, created_at, updated_at
		FROM accounts
		WHERE id = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	const query = `
		SELECT id, email, role, full_name, department, avatar_url,
		       email_verified, status, password_hash, created_at, updated_at
		FROM accounts
		WHERE email = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, email))
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	const query = `
		INSERT INTO accounts (id, email, role, full_name, department, avatar_url,
		                      email_verified, status, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Email,
		account.Role,
		account.FullName,
		account.Department,
		account.AvatarURL,
		account.EmailVerified,
		account.Status,
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return types.Account{}, types.ErrDuplicateEmail
		}
		return types.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) MarkEmailVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE accounts
		SET email_verified = TRUE,
			updated_at = $1
		WHERE id = $2`
	return r.exec(ctx, query, time.Now(), id)
}

// CompleteBaseProfile writes the profile-setup fields of the base row.
// The approval columns are untouched; the two writers of an account row
// target disjoint fields.
func (r *AccountRepository) CompleteBaseProfile(ctx context.Context, id, fullName, department string) error {
	const query = `
		UPDATE accounts
		SET full_name = $1,
			department = $2,
			updated_at = $3
		WHERE id = $4`
	return r.exec(ctx, query, fullName, department, time.Now(), id)
}

func (r *AccountRepository) SetAvatarURL(ctx context.Context, id, avatarURL string) error {
	const query = `
		UPDATE accounts
		SET avatar_url = $1,
			updated_at = $2
		WHERE id = $3`
	return r.exec(ctx, query, avatarURL, time.Now(), id)
}

func (r *AccountRepository) SetStatus(ctx context.Context, id string, status types.ApprovalStatus) error {
	const query = `
		UPDATE accounts
		SET status = $1,
			updated_at = $2
		WHERE id = $3`
	return r.exec(ctx, query, status, time.Now(), id)
}

// ListPending returns accounts of the given role that completed profile
// setup, have no role extension yet, and were not rejected. Newest
// registrations first. Extension existence is checked in the same
// query, so an account approved by a concurrent session never appears.
func (r *AccountRepository) ListPending(ctx context.Context, role types.Role) ([]types.PendingApprovalEntry, error) {
	extensionTable := "student_profiles"
	if role == types.RoleFaculty {
		extensionTable = "faculty_profiles"
	}

	query := `
		SELECT a.id, a.email, a.role, a.full_name, a.department, a.created_at
		FROM accounts a
		WHERE a.role = $1
		  AND a.full_name IS NOT NULL
		  AND a.status <> 'rejected'
		  AND NOT EXISTS (
			SELECT 1 FROM ` + extensionTable + ` e WHERE e.account_id = a.id
		  )
		ORDER BY a.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.PendingApprovalEntry
	for rows.Next() {
		var entry types.PendingApprovalEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Email,
			&entry.Role,
			&entry.FullName,
			&entry.Department,
			&entry.RegisteredAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *AccountRepository) scanAccount(row *sql.Row) (types.Account, error) {
	var account types.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Role,
		&account.FullName,
		&account.Department,
		&account.AvatarURL,
		&account.EmailVerified,
		&account.Status,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
