package models

import "time"

// FileInvitation grants a user, or the public, access to one file.
// At most one invitation exists per (file, invitee) pair; a nil InviteeID
// is the public pseudo-invitee.
type FileInvitation struct {
	ID     string
	FileID string
	// InviteeID is nil for public invitations.
	InviteeID *string
	Privilege Privilege
	// ExpiresAt is nil for invitations that never expire.
	ExpiresAt *time.Time

	CreatedAt time.Time
}

// Expired reports whether the invitation has passed its expiration at the
// given instant. Invitations without an expiration never expire.
func (i *FileInvitation) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}
