package users

import (
	"context"

	"github.com/dmitrijs2005/quickstash/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
