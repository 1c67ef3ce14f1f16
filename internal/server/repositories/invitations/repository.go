package invitations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/quickstash/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, inv *models.FileInvitation) (*models.FileInvitation, error)
	// FindByFileAndInvitee looks an invitation up by its (file, invitee)
	// key. A nil inviteeID addresses the public pseudo-invitee.
	FindByFileAndInvitee(ctx context.Context, fileID string, inviteeID *string) (*models.FileInvitation, error)
	// UpdateTerms replaces privilege and expiration on an existing
	// invitation, keeping its identity.
	UpdateTerms(ctx context.Context, id string, privilege models.Privilege, expiresAt *time.Time) error
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes every invitation whose expiration has passed
	// and reports how many rows were swept.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
