// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity turns raw account records into the [Principal] used for every
authorization decision.

The package has no dependencies on storage or transport. A [Resolver] is a pure
function of its input and of the allow-list injected at startup, so it can be
called from request middleware, from the session tracker, or from tests with
identical results.
*/
package identity

// # Raw Records

// Metadata keys read from the user-editable attribute bag.
const (
	AttrUsername  = "username"
	AttrRole      = "role"
	AttrTheme     = "theme"
	AttrAvatarURL = "avatar_url"
	AttrFavorites = "favorite_scripts"
)

// Accepted values of [AttrTheme].
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Identity providers an account can be created with.
const (
	ProviderEmail   = "email"
	ProviderDiscord = "discord"
)

// Record is the raw identity record owned by the session store.
//
// Metadata is free-form and may contain values of any JSON type. Nothing in it
// is trusted beyond what the resolver parses.
type Record struct {
	ID       string
	Email    string
	Provider string
	Metadata map[string]any
}

// # Resolved Identity

// Principal is the resolved identity carried through authorization checks.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	Role        Role   `json:"role,omitempty"`
	IsElevated  bool   `json:"is_elevated"`
	Provider    string `json:"provider,omitempty"`
}

// RoleName returns the role attribute as stored, or "" when the role is unknown.
func (p *Principal) RoleName() string {
	if p == nil {
		return ""
	}
	return p.Role.String()
}

// Elevated reports whether p has administrator access. It is nil-safe.
func (p *Principal) Elevated() bool {
	return p != nil && p.IsElevated
}
