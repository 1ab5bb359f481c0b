package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/edupanel/apiserver/types"
)

// DraftRepository stores the role-specific fields a user submitted at
// profile setup, as JSON, until an approver promotes them into the real
// extension row. Kept separate from the extension tables because
// extension existence means "approved".
type DraftRepository struct {
	db *sql.DB
}

func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func (r *DraftRepository) Upsert(ctx context.Context, accountID string, role types.Role, payload []byte) error {
	const query = `
		INSERT INTO profile_drafts (account_id, role, payload, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET payload = EXCLUDED.payload,
			submitted_at = EXCLUDED.submitted_at`
	_, err := r.db.ExecContext(ctx, query, accountID, role, payload, time.Now())
	return err
}

func (r *DraftRepository) Get(ctx context.Context, accountID string) (types.Role, []byte, error) {
	const query = `SELECT role, payload FROM profile_drafts WHERE account_id = $1`
	var role types.Role
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(&role, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}
	return role, payload, nil
}

func (r *DraftRepository) Delete(ctx context.Context, accountID string) error {
	const query = `DELETE FROM profile_drafts WHERE account_id = $1`
	_, err := r.db.ExecContext(ctx, query, accountID)
	return err
}
