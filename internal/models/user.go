// Package models holds the user and credential types shared by the storefront
// client and the auth server.
package models

import (
	"strings"
	"time"
)

// User is the public view of an account. It deliberately has no password
// field so it can be stored in the session and returned to callers as is.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// StoredUser is a registry record: the public user plus the password hash.
type StoredUser struct {
	User
	PasswordHash string `json:"passwordHash"`
}

// Public returns a copy of the user without credentials.
func (s *StoredUser) Public() *User {
	u := s.User
	return &u
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput is the registration payload. Role is honoured only where the
// registering side explicitly allows role selection.
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
	Role            Role   `json:"role,omitempty"`
}

// Normalize trims surrounding whitespace from name and email.
func (in *RegisterInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
}

// SameEmail compares two emails case-insensitively.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
