package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
)

// LoginInput captures the credentials sent to the login endpoint. Login
// accepts either the commercial user code or the registered email.
type LoginInput struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
	ClientIP string `json:"-"`
}

// UserDTO is the public representation of a user.
type UserDTO struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      enums.ActorRole `json:"role"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// LoginResult contains the access token produced by a successful login.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *UserDTO  `json:"user"`
}

// CreateUserInput names the fields an admin provides when provisioning a user.
type CreateUserInput struct {
	Code  string `json:"code" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// CreateUserResult returns the created user together with the generated
// temporary password. The password is shown exactly once.
type CreateUserResult struct {
	User         *UserDTO `json:"user"`
	TempPassword string   `json:"temp_password"`
}

// FromModel converts a storage row into the public DTO.
func FromModel(user *models.User) *UserDTO {
	if user == nil {
		return nil
	}
	return &UserDTO{
		ID:        user.ID,
		Code:      user.Code,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}
