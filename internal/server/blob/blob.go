// Package blob defines the opaque physical storage collaborator. The core
// never touches blob bytes beyond streaming them in and out of this store;
// deduplication and reference counting happen in the item layer.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Store is the physical blob storage used by the item layer. Keys are the
// upload discriminators generated with NewKey.
type Store interface {
	// Put streams the payload into storage under key and reports the
	// content hash and byte size observed while writing.
	Put(ctx context.Context, key string, r io.Reader) (hash []byte, size int64, err error)

	// Open returns a read stream for the blob stored under key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob stored under key.
	Delete(ctx context.Context, key string) error

	// PresignedGetURL returns a temporary direct-download URL for key.
	PresignedGetURL(ctx context.Context, key string) (string, error)
}

// NewKey returns a fresh storage key for an incoming upload. Keys are
// date-partitioned so buckets stay browsable.
func NewKey() string {
	d := time.Now()
	return fmt.Sprintf("uploads/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
