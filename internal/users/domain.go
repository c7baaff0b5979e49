package users

import "time"

// User represents an operator account.
type User struct {
	ID           int64
	Username     string
	FullName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
