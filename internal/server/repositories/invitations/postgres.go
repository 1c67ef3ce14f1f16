// Package invitations provides the PostgreSQL-backed repository for file
// sharing invitations, including the public pseudo-invitee.
package invitations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quickstash/internal/common"
	"github.com/dmitrijs2005/quickstash/internal/dbx"
	"github.com/dmitrijs2005/quickstash/internal/server/models"
)

// PostgresRepository implements invitation storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new invitation and fills in the generated id and timestamp.
func (r *PostgresRepository) Create(ctx context.Context, inv *models.FileInvitation) (*models.FileInvitation, error) {
	query := `
		INSERT INTO file_invitations (file_id, invitee_id, privilege, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		inv.FileID, inv.InviteeID, inv.Privilege, inv.ExpiresAt).
		Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return inv, nil
}

// FindByFileAndInvitee returns the invitation keyed by (file, invitee).
// IS NOT DISTINCT FROM lets a single query cover both specific invitees and
// the public pseudo-invitee (NULL).
func (r *PostgresRepository) FindByFileAndInvitee(ctx context.Context, fileID string, inviteeID *string) (*models.FileInvitation, error) {
	query := `
		SELECT id, file_id, invitee_id, privilege, expires_at, created_at FROM file_invitations
		WHERE file_id = $1 AND invitee_id IS NOT DISTINCT FROM $2
	`

	inv := &models.FileInvitation{}
	err := r.db.QueryRowContext(ctx, query, fileID, inviteeID).
		Scan(&inv.ID, &inv.FileID, &inv.InviteeID, &inv.Privilege, &inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return inv, nil
}

// UpdateTerms replaces the privilege and expiration of an existing
// invitation. Exactly one row must be affected.
func (r *PostgresRepository) UpdateTerms(ctx context.Context, id string, privilege models.Privilege, expiresAt *time.Time) error {
	query := `UPDATE file_invitations SET privilege = $1, expires_at = $2 WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, privilege, expiresAt, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrInvitationNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Delete removes the invitation row. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM file_invitations WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrInvitationNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// DeleteExpired sweeps every invitation whose expiration has passed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM file_invitations WHERE expires_at IS NOT NULL AND expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
