// Package common defines shared constants and sentinel errors used across
// quickstash components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors. Each aggregate gets its own NotFound so the
	// transport layer can tell the caller exactly what was missing.
	ErrFileNotFound       = errors.New("file not found")
	ErrFolderNotFound     = errors.New("destination folder not found")
	ErrItemNotFound       = errors.New("item not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvitationNotFound = errors.New("file invitation not found")

	// Conflict errors.
	ErrFileConflict   = errors.New("a file already exists at this location")
	ErrInviteeIsOwner = errors.New("the file invitee cannot be the owner of the file")

	// Authorization errors.
	ErrAccessDenied = errors.New("insufficient privileges")

	// Validation / generic flow control.
	ErrValidation = errors.New("validation error")
	ErrInternal   = errors.New("internal error")
)
