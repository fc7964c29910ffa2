package domain

import "time"

// User is the domain model for account holders. PasswordHash never leaves
// the service layer; response shaping happens in the dto package.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
