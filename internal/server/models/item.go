// Package models defines server-side data models persisted in the database.
package models

import "time"

// Item describes one physically-stored content blob. Many files may point
// at the same item; deduplication is keyed by (hash, size).
type Item struct {
	// ID is the stable identity of the item row.
	ID string
	// Discriminator is the caller-supplied provenance tag of the upload that
	// first produced this item. It doubles as the object-storage key of the
	// canonical blob.
	Discriminator string
	// Hash is the content hash of the blob.
	Hash []byte
	// Size is the blob size in bytes.
	Size int64

	CreatedAt time.Time
}
