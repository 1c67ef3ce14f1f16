package models

import "time"

// User is a row in the read-mostly user directory. Authentication and
// account lifecycle live outside this service.
type User struct {
	ID       string
	Username string
	Email    string

	CreatedAt time.Time
}
