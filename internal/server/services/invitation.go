package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/quickstash/internal/common"
	"github.com/dmitrijs2005/quickstash/internal/dbx"
	"github.com/dmitrijs2005/quickstash/internal/logging"
	"github.com/dmitrijs2005/quickstash/internal/server/mail"
	"github.com/dmitrijs2005/quickstash/internal/server/models"
	"github.com/dmitrijs2005/quickstash/internal/server/repositories/repomanager"
)

// InvitationService grants and revokes time-bounded, privilege-scoped access
// to files, answers every privilege-check query, and sweeps expired grants.
type InvitationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      mail.Mailer
	logger      logging.Logger
	frontendURL string

	// now is a seam for expiry tests.
	now func() time.Time
}

// NewInvitationService constructs an InvitationService.
func NewInvitationService(db *sql.DB, repomanager repomanager.RepositoryManager, mailer mail.Mailer,
	logger logging.Logger, frontendURL string) *InvitationService {
	return &InvitationService{
		db:          db,
		repomanager: repomanager,
		mailer:      mailer,
		logger:      logger,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

// Resolve evaluates a named user against a file: the owner bypasses
// invitations entirely, everyone else needs a live invitation keyed by
// (file, user). Expiration is checked lazily here, so a grant turns dead the
// moment it expires even if the sweep has not run yet.
func (s *InvitationService) Resolve(ctx context.Context, db dbx.DBTX, file *models.File, user *models.User) (Access, error) {
	if user.ID == file.UserID {
		return Access{Decision: AccessOwner, Privilege: models.PrivilegeFull}, nil
	}

	inv, err := s.repomanager.Invitations(db).FindByFileAndInvitee(ctx, file.ID, &user.ID)
	if err != nil {
		if errors.Is(err, common.ErrInvitationNotFound) {
			return Access{}, nil
		}
		return Access{}, err
	}
	if inv.Expired(s.now()) {
		return Access{}, nil
	}

	return Access{Decision: AccessInvited, Privilege: inv.Privilege}, nil
}

// ResolvePublic evaluates the public pseudo-invitee against a file. This is
// the only path anonymous reads go through; it never consults per-user
// invitations.
func (s *InvitationService) ResolvePublic(ctx context.Context, db dbx.DBTX, file *models.File) (Access, error) {
	inv, err := s.repomanager.Invitations(db).FindByFileAndInvitee(ctx, file.ID, nil)
	if err != nil {
		if errors.Is(err, common.ErrInvitationNotFound) {
			return Access{}, nil
		}
		return Access{}, err
	}
	if inv.Expired(s.now()) {
		return Access{}, nil
	}

	return Access{Decision: AccessInvited, Privilege: inv.Privilege}, nil
}

// Share invites a user (or the public, when inviteeUsername is nil) to a
// file. Re-sharing to the same (file, invitee) updates privilege and
// expiration on the existing row instead of duplicating it. When notify is
// set, a fresh personal invitation triggers an asynchronous notification;
// delivery failures are logged and never surfaced.
func (s *InvitationService) Share(ctx context.Context, fileID string, inviteeUsername *string,
	privilege models.Privilege, expiresAt *time.Time, notify bool) (*models.FileInvitation, error) {

	if !privilege.Valid() {
		return nil, fmt.Errorf("%w: unknown privilege %d", common.ErrValidation, privilege)
	}

	var invitation *models.FileInvitation
	var message *mail.Message

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		file, err := s.repomanager.Files(tx).GetByID(ctx, fileID)
		if err != nil {
			return err
		}

		var invitee *models.User
		var inviteeID *string
		if inviteeUsername != nil {
			invitee, err = s.repomanager.Users(tx).GetByUsername(ctx, *inviteeUsername)
			if err != nil {
				return err
			}
			inviteeID = &invitee.ID
		}

		// Idempotent re-share: same (file, invitee) key, new terms.
		existing, err := s.repomanager.Invitations(tx).FindByFileAndInvitee(ctx, file.ID, inviteeID)
		if err == nil {
			if err := s.repomanager.Invitations(tx).UpdateTerms(ctx, existing.ID, privilege, expiresAt); err != nil {
				return err
			}
			existing.Privilege = privilege
			existing.ExpiresAt = expiresAt
			invitation = existing
			return nil
		}
		if !errors.Is(err, common.ErrInvitationNotFound) {
			return err
		}

		if invitee != nil && invitee.ID == file.UserID {
			return common.ErrInviteeIsOwner
		}

		invitation, err = s.repomanager.Invitations(tx).Create(ctx, &models.FileInvitation{
			FileID:    file.ID,
			InviteeID: inviteeID,
			Privilege: privilege,
			ExpiresAt: expiresAt,
		})
		if err != nil {
			return err
		}

		if notify && invitee != nil {
			message, err = s.renderNotification(ctx, tx, file, invitee)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Dispatched after commit so a slow or failing mail collaborator can
	// neither block nor roll back the grant.
	if message != nil {
		go s.deliver(context.WithoutCancel(ctx), *message)
	}

	return invitation, nil
}

// Unshare revokes the invitation keyed by (file, invitee) and returns its
// snapshot.
func (s *InvitationService) Unshare(ctx context.Context, fileID, inviteeUsername string) (*models.FileInvitation, error) {
	var invitation *models.FileInvitation

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		file, err := s.repomanager.Files(tx).GetByID(ctx, fileID)
		if err != nil {
			return err
		}

		invitee, err := s.repomanager.Users(tx).GetByUsername(ctx, inviteeUsername)
		if err != nil {
			return err
		}

		invitation, err = s.repomanager.Invitations(tx).FindByFileAndInvitee(ctx, file.ID, &invitee.ID)
		if err != nil {
			return err
		}

		return s.repomanager.Invitations(tx).Delete(ctx, invitation.ID)
	})
	if err != nil {
		return nil, err
	}

	return invitation, nil
}

// RunSweeper deletes expired invitations on the given cadence until ctx is
// cancelled. The sweep is a best-effort janitor: Resolve checks expiration
// lazily, so a late sweep only costs storage, never authorization.
func (s *InvitationService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.repomanager.Invitations(s.db).DeleteExpired(ctx, s.now())
			if err != nil {
				s.logger.Error(ctx, "expired invitation sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info(ctx, "swept expired invitations", "count", n)
			}
		}
	}
}

func (s *InvitationService) renderNotification(ctx context.Context, tx dbx.DBTX, file *models.File, invitee *models.User) (*mail.Message, error) {
	owner, err := s.repomanager.Users(tx).GetByID(ctx, file.UserID)
	if err != nil {
		return nil, err
	}

	link, err := url.JoinPath(s.frontendURL, "files", file.ID)
	if err != nil {
		return nil, err
	}

	subject, body, err := mail.RenderInvitation(mail.InvitationEmail{
		Inviter:  owner.Username,
		Filename: file.Name,
		Username: invitee.Username,
		URL:      link,
	})
	if err != nil {
		return nil, err
	}

	return &mail.Message{To: invitee.Email, Subject: subject, Body: body}, nil
}

func (s *InvitationService) deliver(ctx context.Context, msg mail.Message) {
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error(ctx, "failed to deliver invitation notification", "to", msg.To, "error", err)
	}
}
