// Package services implements the application services of the quickstash
// backend: the deduplicated item store, the file layer on top of it, and the
// sharing/invitation subsystem. Multi-step mutations run inside dbx.WithTx
// units supplied by the file and invitation services.
package services

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/quickstash/internal/common"
	"github.com/dmitrijs2005/quickstash/internal/dbx"
	"github.com/dmitrijs2005/quickstash/internal/logging"
	"github.com/dmitrijs2005/quickstash/internal/server/blob"
	"github.com/dmitrijs2005/quickstash/internal/server/models"
	"github.com/dmitrijs2005/quickstash/internal/server/repositories/repomanager"
)

// ItemService owns content-addressed item records. Items are deduplicated by
// (hash, size); the discriminator is caller-supplied provenance and doubles
// as the blob-storage key.
type ItemService struct {
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	logger      logging.Logger
}

// NewItemService constructs an ItemService.
func NewItemService(repomanager repomanager.RepositoryManager, blobs blob.Store, logger logging.Logger) *ItemService {
	return &ItemService{
		repomanager: repomanager,
		blobs:       blobs,
		logger:      logger,
	}
}

// GrabOrCreate returns the item matching (hash, size), creating it when no
// such item exists. It runs on the caller's DBTX so the lookup joins the
// caller's transaction. The boolean reports whether a new item was created.
// Callers must compare the returned item's discriminator against their own:
// a mismatch means the upload was a duplicate of an item backed by another
// blob, and the redundant physical blob must be discarded.
func (s *ItemService) GrabOrCreate(ctx context.Context, db dbx.DBTX, discriminator string, hash []byte, size int64) (*models.Item, bool, error) {
	if size < 0 {
		return nil, false, fmt.Errorf("%w: negative item size", common.ErrValidation)
	}

	item := &models.Item{
		Discriminator: discriminator,
		Hash:          hash,
		Size:          size,
	}
	return s.repomanager.Items(db).GrabOrCreate(ctx, item)
}

// DeleteIfUnreferenced removes the item record when no file references it
// any more. The count and the delete run on the caller's DBTX, so a file
// deletion and its reference-count evaluation commit or roll back together.
// Physical blob removal is the caller's job (via DiscardBlob) once the
// transaction has committed.
func (s *ItemService) DeleteIfUnreferenced(ctx context.Context, db dbx.DBTX, item *models.Item) (bool, error) {
	count, err := s.repomanager.Files(db).CountByItem(ctx, item.ID)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if err := s.repomanager.Items(db).Delete(ctx, item.ID); err != nil {
		return false, err
	}
	return true, nil
}

// DiscardBlob removes a physical blob best-effort. Failures only cost
// storage, never correctness, so they are logged and swallowed.
func (s *ItemService) DiscardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Error(ctx, "failed to discard blob", "key", key, "error", err)
	}
}

// OpenReadStream returns a read handle on the item's physical content.
func (s *ItemService) OpenReadStream(ctx context.Context, item *models.Item) (io.ReadCloser, error) {
	return s.blobs.Open(ctx, item.Discriminator)
}

// DownloadURL returns a temporary direct-download URL for the item's
// physical content.
func (s *ItemService) DownloadURL(ctx context.Context, item *models.Item) (string, error) {
	return s.blobs.PresignedGetURL(ctx, item.Discriminator)
}
