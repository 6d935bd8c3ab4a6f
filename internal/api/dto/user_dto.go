package dto

import (
	"time"

	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/service"
)

// LoginRequest payload for login. username is accepted in place of email.
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login returns the identifier the caller supplied.
func (r LoginRequest) Login() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// UserCreateRequest payload for new users.
type UserCreateRequest struct {
	FirstName string `json:"firstName" validate:"max=255"`
	LastName  string `json:"lastName" validate:"max=255"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=3,max=100"`
	Role      string `json:"role" validate:"omitempty,oneof=user admin"`
}

// ToInput converts the request for the service.
func (r UserCreateRequest) ToInput() service.UserCreateInput {
	return service.UserCreateInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Password:  r.Password,
		Role:      domain.Role(r.Role),
	}
}

// UserUpdateRequest is a partial update.
type UserUpdateRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=255"`
	LastName  *string `json:"lastName" validate:"omitempty,max=255"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=3,max=100"`
	Role      *string `json:"role" validate:"omitempty,oneof=user admin"`
	Version   *int64  `json:"version"`
}

// ToInput converts the request for the service.
func (r UserUpdateRequest) ToInput() service.UserUpdateInput {
	input := service.UserUpdateInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Password:  r.Password,
		Version:   r.Version,
	}
	if r.Role != nil {
		role := domain.Role(*r.Role)
		input.Role = &role
	}
	return input
}

// UserResponse is the wire form of a user. The password hash never leaves
// the service.
type UserResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromUser maps a domain user.
func FromUser(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      string(user.Role),
		Version:   user.Version,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// FromUsers maps a list of users.
func FromUsers(users []domain.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = FromUser(&users[i])
	}
	return out
}
