package auth

import (
	"time"

	"leavetrack/internal/domain/policy"
)

type User struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	PasswordHash string            `json:"-"`
	Role         string            `json:"role"`
	Department   string            `json:"department"`
	Allocation   policy.Allocation `json:"allocation"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// UserContext is the authenticated caller carried on the request context.
type UserContext struct {
	UserID     string
	Role       string
	Department string
}

func (u UserContext) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u UserContext) IsManager() bool {
	return u.Role == RoleManager
}

type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Department string
}

type ProfileUpdate struct {
	Name       string
	Department string
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type UserListResult struct {
	Users []User
	Total int
}
