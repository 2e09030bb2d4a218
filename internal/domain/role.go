package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of profile roles. The zero value is not a role.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleCandidate
	RoleRecruiter
)

// ParseRole maps the stored role string onto a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "candidate":
		return RoleCandidate, nil
	case "recruiter":
		return RoleRecruiter, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// String returns the stored form of the role.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleCandidate:
		return "candidate"
	case RoleRecruiter:
		return "recruiter"
	default:
		return ""
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r.String() != ""
}

// CanOwnPipeline reports whether a profile with this role owns pipeline
// stages and may move candidates between them.
func (r Role) CanOwnPipeline() bool {
	switch r {
	case RoleRecruiter:
		return true
	case RoleAdmin, RoleCandidate:
		return false
	default:
		return false
	}
}

// MarshalText encodes the role as its stored string.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return []byte{}, nil
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a stored role string. Empty input yields the zero Role.
func (r *Role) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = 0
		return nil
	}
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
