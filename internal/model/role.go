package model

import (
	"errors"
	"strings"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleExecutive Role = "executive"
	RoleStaff     Role = "staff"
)

// ErrUnknownRole is returned by ParseRole for values outside the role set.
var ErrUnknownRole = errors.New("role must be one of admin, executive, staff")

// Roles lists every valid role in privilege order.
func Roles() []Role {
	return []Role{RoleStaff, RoleExecutive, RoleAdmin}
}

// ParseRole converts s to a Role. Matching is exact after trimming spaces.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleExecutive, RoleStaff:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }
