package profile

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the capability level attached to a profile.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleChild Role = "child"
)

// DefaultRole is assigned to every newly created profile.
const DefaultRole = RoleUser

var ErrInvalidRole = errors.New("invalid role")

// Roles lists every valid role in a stable order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleUser, RoleChild}
}

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(s)); r {
	case RoleAdmin, RoleUser, RoleChild:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleChild:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// In reports whether r is one of allowed.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
