package items

import (
	"context"

	"github.com/dmitrijs2005/quickstash/internal/server/models"
)

type Repository interface {
	// GrabOrCreate returns the item matching (hash, size), creating it when
	// absent. The boolean reports whether a new row was created.
	GrabOrCreate(ctx context.Context, item *models.Item) (*models.Item, bool, error)
	GetByID(ctx context.Context, id string) (*models.Item, error)
	Delete(ctx context.Context, id string) error
}
