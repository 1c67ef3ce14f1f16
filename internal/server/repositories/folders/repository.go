package folders

import (
	"context"

	"github.com/dmitrijs2005/quickstash/internal/server/models"
)

type Repository interface {
	// GetOwned returns the folder only when it belongs to userID.
	GetOwned(ctx context.Context, id, userID string) (*models.Folder, error)
}
