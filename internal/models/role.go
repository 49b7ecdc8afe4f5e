package models

import "fmt"

// Role is the authorization level attached to a user.
type Role string

const (
	// RoleNone is used as a route requirement meaning "any authenticated user".
	RoleNone  Role = ""
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole converts s into a known Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is a role a user can hold.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Satisfies reports whether a user holding r may access something that
// requires the given role. Admin satisfies every requirement.
func (r Role) Satisfies(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	switch required {
	case RoleNone:
		return r.Valid()
	case RoleUser:
		return r == RoleUser
	default:
		return false
	}
}
