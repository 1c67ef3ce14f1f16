// Package files provides the PostgreSQL-backed repository for user-visible
// file rows.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/quickstash/internal/common"
	"github.com/dmitrijs2005/quickstash/internal/dbx"
	"github.com/dmitrijs2005/quickstash/internal/server/models"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new file row and fills in the generated id and timestamp.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (name, user_id, folder_id, item_id, public)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		file.Name, file.UserID, file.FolderID, file.ItemID, file.Public).
		Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

const selectFileColumns = `SELECT id, name, user_id, folder_id, item_id, public, created_at FROM files`

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.File, error) {
	file := &models.File{}
	err := row.Scan(&file.ID, &file.Name, &file.UserID, &file.FolderID,
		&file.ItemID, &file.Public, &file.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrFileNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

// GetByID returns the file with the given id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := selectFileColumns + ` WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetOwned returns the file with the given id if it is owned by userID.
func (r *PostgresRepository) GetOwned(ctx context.Context, id, userID string) (*models.File, error) {
	query := selectFileColumns + ` WHERE id = $1 AND user_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, userID))
}

// FindAt returns the file occupying (name, folder, owner), if any.
func (r *PostgresRepository) FindAt(ctx context.Context, name, folderID, userID string) (*models.File, error) {
	query := selectFileColumns + ` WHERE name = $1 AND folder_id = $2 AND user_id = $3`
	return r.scanOne(r.db.QueryRowContext(ctx, query, name, folderID, userID))
}

// Update persists the mutable location fields (name, folder). Exactly one
// row must be affected.
func (r *PostgresRepository) Update(ctx context.Context, file *models.File) error {
	query := `UPDATE files SET name = $1, folder_id = $2 WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, file.Name, file.FolderID, file.ID)
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
		return common.ErrFileNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Delete removes the file row. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`

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
		return common.ErrFileNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// CountByItem reports how many file rows reference the given item.
func (r *PostgresRepository) CountByItem(ctx context.Context, itemID string) (int64, error) {
	query := `SELECT COUNT(*) FROM files WHERE item_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, itemID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
