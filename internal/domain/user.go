package domain

import "time"

// User is an account that can log in, create tasks and be assigned to them.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
