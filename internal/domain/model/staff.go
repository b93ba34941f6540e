package model

import "strings"

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleReception Role = "RECEPTION"
	RoleUser      Role = "USER"
)

// ParseRole normalizes a configured role name. Unknown names yield "".
func ParseRole(s string) Role {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleReception, RoleUser:
		return r
	default:
		return ""
	}
}

// StaffAccount is a named operator allowed to log in.
type StaffAccount struct {
	Username     string
	PasswordHash string // bcrypt
	Role         Role
}

// HasAnyRole reports whether the account holds one of roles.
func (s *StaffAccount) HasAnyRole(roles ...Role) bool {
	if s == nil {
		return false
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}
