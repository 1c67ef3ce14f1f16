// Package folders provides read access to the folder hierarchy. The file
// layer only resolves destinations here; folder CRUD lives elsewhere.
package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/quickstash/internal/common"
	"github.com/dmitrijs2005/quickstash/internal/dbx"
	"github.com/dmitrijs2005/quickstash/internal/server/models"
)

// PostgresRepository implements folder lookups over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOwned returns the folder with the given id if it is owned by userID.
func (r *PostgresRepository) GetOwned(ctx context.Context, id, userID string) (*models.Folder, error) {
	query := `
		SELECT id, name, parent_id, user_id, created_at FROM folders
		WHERE id = $1 AND user_id = $2
	`

	folder := &models.Folder{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&folder.ID, &folder.Name, &folder.ParentID, &folder.UserID, &folder.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrFolderNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return folder, nil
}
