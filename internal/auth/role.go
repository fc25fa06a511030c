package auth

import (
	"fmt"
	"strings"
)

// Role is one of the fixed custodial capability roles. Roles form a flat
// set: no role inherits another's permissions, and every authorization
// decision is an explicit membership check against an allowed set.
type Role string

const (
	RolePolice      Role = "police"
	RoleForensicLab Role = "forensic_lab"
	RoleProsecutor  Role = "prosecutor"
	RoleJudge       Role = "judge"
)

// Roles lists every known role.
var Roles = []Role{RolePolice, RoleForensicLab, RoleProsecutor, RoleJudge}

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(strings.ToLower(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// In reports whether r is a member of the allowed set.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
