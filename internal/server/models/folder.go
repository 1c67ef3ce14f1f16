package models

import "time"

// Folder is a hierarchical, user-owned container for files. The file layer
// treats folders as read-mostly reference data; it only needs them as the
// uniqueness/ownership boundary for file names.
type Folder struct {
	ID   string
	Name string
	// ParentID is nil for the user's root folder.
	ParentID *string
	UserID   string

	CreatedAt time.Time
}
