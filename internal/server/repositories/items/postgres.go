// Package items provides the PostgreSQL-backed repository for deduplicated
// content items.
package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/quickstash/internal/common"
	"github.com/dmitrijs2005/quickstash/internal/dbx"
	"github.com/dmitrijs2005/quickstash/internal/server/models"
)

// grabAttempts bounds the insert/select loop in GrabOrCreate. More than one
// retry is only needed when a concurrent transaction deletes the winning row
// between our conflicting insert and the follow-up select.
const grabAttempts = 3

// PostgresRepository implements item storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GrabOrCreate inserts the item unless a row with the same (hash, size)
// already exists, in which case the existing row is returned unchanged.
// The unique constraint on (hash, size) makes the lookup-then-create safe
// under concurrent uploads: the losing insert affects no row and the loser
// re-reads the winner's item instead.
func (r *PostgresRepository) GrabOrCreate(ctx context.Context, item *models.Item) (*models.Item, bool, error) {
	insert := `
		INSERT INTO items (discriminator, hash, size)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash, size) DO NOTHING
		RETURNING id, created_at
	`
	query := `
		SELECT id, discriminator, hash, size, created_at FROM items
		WHERE hash = $1 AND size = $2
	`

	for attempt := 0; attempt < grabAttempts; attempt++ {
		err := r.db.QueryRowContext(ctx, insert,
			item.Discriminator, item.Hash, item.Size).Scan(&item.ID, &item.CreatedAt)
		if err == nil {
			return item, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("db error: %w", err)
		}

		// The insert conflicted; read the canonical row.
		existing := &models.Item{}
		err = r.db.QueryRowContext(ctx, query, item.Hash, item.Size).
			Scan(&existing.ID, &existing.Discriminator, &existing.Hash, &existing.Size, &existing.CreatedAt)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("db error: %w", err)
		}
		// The winner disappeared before we could read it; insert again.
	}

	return nil, false, fmt.Errorf("item lookup did not converge after %d attempts", grabAttempts)
}

// GetByID returns the item with the given id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	query := `
		SELECT id, discriminator, hash, size, created_at FROM items
		WHERE id = $1
	`

	item := &models.Item{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&item.ID, &item.Discriminator, &item.Hash, &item.Size, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrItemNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return item, nil
}

// Delete removes the item row. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM items WHERE id = $1`

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
		return common.ErrItemNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
