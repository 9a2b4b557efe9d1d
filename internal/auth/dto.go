package auth

import (
	"github.com/thriftline/thriftline-backend/internal/users"
	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// RegisterRequest carries the signup payload.
type RegisterRequest struct {
	Name     string         `json:"name" validate:"required,min=2,max=120"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8,max=128"`
	Role     enums.UserRole `json:"role" validate:"required,oneof=buyer seller"`
	Phone    *string        `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
}

// LoginRequest carries the login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the access token plus the authenticated profile.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
}
