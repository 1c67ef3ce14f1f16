package services

import "github.com/dmitrijs2005/quickstash/internal/server/models"

// AccessDecision is the closed set of privilege-check outcomes.
type AccessDecision int

const (
	// AccessDenied means no grant applies; the zero Access denies.
	AccessDenied AccessDecision = iota
	// AccessOwner is the unconditional owner bypass.
	AccessOwner
	// AccessInvited means a live invitation applies; its privilege level
	// is carried alongside.
	AccessInvited
)

// Access is the outcome of resolving a user (or the public) against a file.
type Access struct {
	Decision  AccessDecision
	Privilege models.Privilege
}

// Allows reports whether the access outcome satisfies the required
// privilege level. Owners are allowed unconditionally; invitees need an
// invitation privilege at or above the required level.
func (a Access) Allows(required models.Privilege) bool {
	switch a.Decision {
	case AccessOwner:
		return true
	case AccessInvited:
		return a.Privilege >= required
	default:
		return false
	}
}
