package models

// Privilege is the ordered access level carried by a file invitation.
// Higher values imply every lower one.
type Privilege int

const (
	PrivilegeReadOnly Privilege = iota + 1
	PrivilegeEdit
	PrivilegeFull
)

// Valid reports whether p is one of the defined privilege levels.
func (p Privilege) Valid() bool {
	return p >= PrivilegeReadOnly && p <= PrivilegeFull
}

func (p Privilege) String() string {
	switch p {
	case PrivilegeReadOnly:
		return "read-only"
	case PrivilegeEdit:
		return "edit"
	case PrivilegeFull:
		return "full"
	default:
		return "unknown"
	}
}
