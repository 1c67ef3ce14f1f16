package models

import "time"

// File is a named, user-owned pointer into a folder that references exactly
// one item. (Name, FolderID, UserID) is unique.
type File struct {
	ID string
	// Name is the user-visible file name, unique among siblings.
	Name string
	// UserID is the owner of the file.
	UserID string
	// FolderID is the parent folder.
	FolderID string
	// ItemID references the deduplicated content blob.
	ItemID string
	// Public marks files that were published with a public invitation
	// at upload time.
	Public bool

	CreatedAt time.Time
}
