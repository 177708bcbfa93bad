// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

// # Roles

// Role is the tagged form of the free-text role attribute stored on an account.
//
// Parsing is exact and case-sensitive. Anything that is not one of the known
// names becomes [RoleUnknown], which is never privileged.
type Role int

const (
	// RoleUnknown covers missing, malformed and unrecognised role values.
	RoleUnknown Role = iota

	// Default role for standard registered users
	RoleUser

	// Sells license keys; no console access
	RoleReseller

	// Probationary staff
	RoleTrialSupport
	RoleTrialMod

	// Privileged roles
	RoleDeveloper
	RoleOwner
	RoleHeadAdmin
	RoleAdmin
)

// roleNames is the canonical stored value of every known role.
var roleNames = map[Role]string{
	RoleUser:         "user",
	RoleReseller:     "reseller",
	RoleTrialSupport: "trial support",
	RoleTrialMod:     "trial mod",
	RoleDeveloper:    "developer",
	RoleOwner:        "owner",
	RoleHeadAdmin:    "head admin",
	RoleAdmin:        "admin",
}

// legacyRoleNames are spellings still present on older accounts. They parse
// but are never written back.
var legacyRoleNames = map[string]Role{
	"trail support": RoleTrialSupport,
}

var rolesByName = func() map[string]Role {
	byName := make(map[string]Role, len(roleNames)+len(legacyRoleNames))
	for role, name := range roleNames {
		byName[name] = role
	}
	for name, role := range legacyRoleNames {
		byName[name] = role
	}
	return byName
}()

// ParseRole converts a raw attribute value into a [Role].
//
// Non-string values resolve to [RoleUnknown].
func ParseRole(raw any) Role {
	name, ok := raw.(string)
	if !ok {
		return RoleUnknown
	}

	if role, found := rolesByName[name]; found {
		return role
	}
	return RoleUnknown
}

// Privileged reports whether the role grants console access on its own.
func (r Role) Privileged() bool {
	switch r {
	case RoleAdmin, RoleHeadAdmin, RoleOwner, RoleDeveloper:
		return true
	default:
		return false
	}
}

// Known reports whether the role is anything other than [RoleUnknown].
func (r Role) Known() bool {
	return r.String() != ""
}

// MarshalText implements [encoding.TextMarshaler].
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler]. Unknown names decode to [RoleUnknown].
func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}

// String returns the stored attribute value for the role, or "" for [RoleUnknown].
func (r Role) String() string {
	return roleNames[r]
}
