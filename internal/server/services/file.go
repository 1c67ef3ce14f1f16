package services

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/dmitrijs2005/quickstash/internal/common"
	"github.com/dmitrijs2005/quickstash/internal/dbx"
	"github.com/dmitrijs2005/quickstash/internal/logging"
	"github.com/dmitrijs2005/quickstash/internal/server/models"
	"github.com/dmitrijs2005/quickstash/internal/server/repositories/repomanager"
)

// FileService maps user-visible named files onto deduplicated items and
// orchestrates every multi-step file mutation inside a single transaction.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	items       *ItemService
	invitations *InvitationService
	logger      logging.Logger
}

// NewFileService constructs a FileService.
func NewFileService(db *sql.DB, repomanager repomanager.RepositoryManager, items *ItemService,
	invitations *InvitationService, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: repomanager,
		items:       items,
		invitations: invitations,
		logger:      logger,
	}
}

// Save persists the metadata of an accepted upload, creating or reusing the
// backing item. When the surviving item carries a different discriminator
// than the upload, the upload is a redundant physical blob and is discarded
// after the transaction commits (dedup path). If isPublic, a
// public read-only invitation without expiration is created alongside.
func (s *FileService) Save(ctx context.Context, meta UploadMetadata, isPublic bool, userID, folderID string) (*models.File, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	var file *models.File
	var redundantBlob string

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		parent, err := s.repomanager.Folders(tx).GetOwned(ctx, folderID, userID)
		if err != nil {
			return err
		}

		if err := s.checkLocationFree(ctx, tx, meta.Name, parent.ID, parent.UserID); err != nil {
			return err
		}

		item, _, err := s.items.GrabOrCreate(ctx, tx, meta.Discriminator, meta.Hash, meta.Size)
		if err != nil {
			return err
		}
		// A surviving item with a different discriminator means the uploaded
		// blob is a duplicate; it is deleted once the transaction has
		// committed. When the discriminators match, the item already points
		// at this very blob (the same upload saved again), so discarding it
		// would orphan every file referencing the item.
		if item.Discriminator != meta.Discriminator {
			redundantBlob = meta.Discriminator
		}

		file, err = s.repomanager.Files(tx).Create(ctx, &models.File{
			Name:     meta.Name,
			UserID:   parent.UserID,
			FolderID: parent.ID,
			ItemID:   item.ID,
			Public:   isPublic,
		})
		if err != nil {
			return err
		}

		if isPublic {
			_, err = s.repomanager.Invitations(tx).Create(ctx, &models.FileInvitation{
				FileID:    file.ID,
				Privilege: models.PrivilegeReadOnly,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if redundantBlob != "" {
		s.items.DiscardBlob(ctx, redundantBlob)
	}

	return file, nil
}

// Copy duplicates a file into another folder. The copy is a new row pointing
// at the same item; deduplication is not re-run.
func (s *FileService) Copy(ctx context.Context, userID, fileID, destFolderID string) (*models.File, error) {
	var copied *models.File

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		source, err := s.repomanager.Files(tx).GetOwned(ctx, fileID, userID)
		if err != nil {
			return err
		}

		destination, err := s.repomanager.Folders(tx).GetOwned(ctx, destFolderID, userID)
		if err != nil {
			return err
		}

		if err := s.checkLocationFree(ctx, tx, source.Name, destination.ID, source.UserID); err != nil {
			return err
		}

		copied, err = s.repomanager.Files(tx).Create(ctx, &models.File{
			Name:     source.Name,
			UserID:   source.UserID,
			FolderID: destination.ID,
			ItemID:   source.ItemID,
			Public:   source.Public,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return copied, nil
}

// Move relocates a file into another folder, re-validating name uniqueness
// at the destination.
func (s *FileService) Move(ctx context.Context, userID, fileID, destFolderID string) (*models.File, error) {
	var moved *models.File

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		file, err := s.repomanager.Files(tx).GetOwned(ctx, fileID, userID)
		if err != nil {
			return err
		}

		destination, err := s.repomanager.Folders(tx).GetOwned(ctx, destFolderID, userID)
		if err != nil {
			return err
		}

		if err := s.checkLocationFree(ctx, tx, file.Name, destination.ID, file.UserID); err != nil {
			return err
		}

		file.FolderID = destination.ID
		if err := s.repomanager.Files(tx).Update(ctx, file); err != nil {
			return err
		}
		moved = file
		return nil
	})
	if err != nil {
		return nil, err
	}

	return moved, nil
}

// Rename gives a file a new name, re-validating uniqueness within its
// current parent. On conflict the original file is left untouched.
func (s *FileService) Rename(ctx context.Context, userID, fileID, newName string) (*models.File, error) {
	var renamed *models.File

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		file, err := s.repomanager.Files(tx).GetOwned(ctx, fileID, userID)
		if err != nil {
			return err
		}

		if err := s.checkLocationFree(ctx, tx, newName, file.FolderID, file.UserID); err != nil {
			return err
		}

		file.Name = newName
		if err := s.repomanager.Files(tx).Update(ctx, file); err != nil {
			return err
		}
		renamed = file
		return nil
	})
	if err != nil {
		return nil, err
	}

	return renamed, nil
}

// DeleteOne removes a file row and garbage-collects its item when the last
// reference disappeared. The file delete and the reference-count evaluation
// share one transaction, so a concurrent creation referencing the same item
// can never observe the item half-deleted. Returns the deleted file's
// snapshot.
func (s *FileService) DeleteOne(ctx context.Context, userID, fileID string) (*models.File, error) {
	var removed *models.File
	var orphanedBlob string

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		file, err := s.repomanager.Files(tx).GetOwned(ctx, fileID, userID)
		if err != nil {
			return err
		}

		if err := s.repomanager.Files(tx).Delete(ctx, file.ID); err != nil {
			return err
		}

		item, err := s.repomanager.Items(tx).GetByID(ctx, file.ItemID)
		if err != nil {
			return err
		}

		deleted, err := s.items.DeleteIfUnreferenced(ctx, tx, item)
		if err != nil {
			return err
		}
		if deleted {
			orphanedBlob = item.Discriminator
		}

		removed = file
		return nil
	})
	if err != nil {
		return nil, err
	}

	if orphanedBlob != "" {
		s.items.DiscardBlob(ctx, orphanedBlob)
	}

	return removed, nil
}

// FindOneOrFail resolves a file and verifies the requester may read it.
// A nil requester is an anonymous caller and is checked against the public
// invitation only.
func (s *FileService) FindOneOrFail(ctx context.Context, fileID string, requester *models.User) (*models.File, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	access, err := s.authorize(ctx, file, requester)
	if err != nil {
		return nil, err
	}
	if !access.Allows(models.PrivilegeReadOnly) {
		return nil, common.ErrAccessDenied
	}

	return file, nil
}

// OpenReadStream resolves a file, verifies read privilege, and returns a
// handle into the blob store keyed by the file's item.
func (s *FileService) OpenReadStream(ctx context.Context, fileID string, requester *models.User) (io.ReadCloser, error) {
	file, err := s.FindOneOrFail(ctx, fileID, requester)
	if err != nil {
		return nil, err
	}

	item, err := s.repomanager.Items(s.db).GetByID(ctx, file.ItemID)
	if err != nil {
		return nil, err
	}

	return s.items.OpenReadStream(ctx, item)
}

// DownloadURL resolves a file, verifies read privilege, and returns a
// temporary direct-download URL so readers can bypass the backend for the
// payload bytes.
func (s *FileService) DownloadURL(ctx context.Context, fileID string, requester *models.User) (string, error) {
	file, err := s.FindOneOrFail(ctx, fileID, requester)
	if err != nil {
		return "", err
	}

	item, err := s.repomanager.Items(s.db).GetByID(ctx, file.ItemID)
	if err != nil {
		return "", err
	}

	return s.items.DownloadURL(ctx, item)
}

// authorize dispatches to the per-user or the public resolution path. The
// two are deliberately separate queries; anonymous access never falls back
// to a per-user invitation and vice versa.
func (s *FileService) authorize(ctx context.Context, file *models.File, requester *models.User) (Access, error) {
	if requester == nil {
		return s.invitations.ResolvePublic(ctx, s.db, file)
	}
	return s.invitations.Resolve(ctx, s.db, file, requester)
}

// checkLocationFree returns ErrFileConflict when (name, folder, owner) is
// already taken.
func (s *FileService) checkLocationFree(ctx context.Context, tx dbx.DBTX, name, folderID, userID string) error {
	_, err := s.repomanager.Files(tx).FindAt(ctx, name, folderID, userID)
	if err == nil {
		return common.ErrFileConflict
	}
	if !errors.Is(err, common.ErrFileNotFound) {
		return err
	}
	return nil
}
