package dto

import (
	"time"

	"github.com/spec-kit/task-service/internal/domain"
)

// UserResponse is the external representation of a user. The password hash
// is deliberately absent.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserResponse maps a domain user to its wire shape.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// ProfileUpdateRequest payload for PUT /profile/me. Pointer fields
// distinguish "absent" from "empty".
type ProfileUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}
