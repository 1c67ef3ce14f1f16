package files

import (
	"context"

	"github.com/dmitrijs2005/quickstash/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	// GetOwned returns the file only when it belongs to userID.
	GetOwned(ctx context.Context, id, userID string) (*models.File, error)
	// FindAt looks a file up by its location key (name, folder, owner).
	FindAt(ctx context.Context, name, folderID, userID string) (*models.File, error)
	// Update persists name and parent changes made by move/rename.
	Update(ctx context.Context, file *models.File) error
	Delete(ctx context.Context, id string) error
	// CountByItem reports how many files reference the given item.
	CountByItem(ctx context.Context, itemID string) (int64, error)
}
