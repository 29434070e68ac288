package auth

import (
	"time"

	"github.com/google/uuid"
)

// Roles a user account can carry.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	Avatar       string
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserView is the client-visible projection of a User. The password hash is
// never part of it.
type UserView struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Avatar    string     `json:"avatar,omitempty"`
	IsActive  *bool      `json:"isActive,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Summary returns the short form used in register/login responses.
func (u User) Summary() UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Avatar: u.Avatar}
}

// Profile returns the full form used by /me and profile updates.
func (u User) Profile() UserView {
	active := u.IsActive
	created, updated := u.CreatedAt, u.UpdatedAt
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Avatar:    u.Avatar,
		IsActive:  &active,
		LastLogin: u.LastLogin,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

// ProfileChanges lists the fields a user may change on their own account.
type ProfileChanges struct {
	Name  *string
	Email *string
}

// Empty reports whether nothing would change.
func (c ProfileChanges) Empty() bool {
	return c.Name == nil && c.Email == nil
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string
	User  User
}
