// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package profile manages display preferences kept on an account.

Preferences live in the account's attribute bag, so every write goes through
the session service and reaches open sessions as a user_updated event.
Preference failures never affect authorization: [ThemeSync] logs and carries
on with the default theme.
*/
package profile

import (
	"context"
	"slices"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/session"
)

// # Domain Types

// Theme is the colour scheme of the dashboard.
type Theme string

const (
	ThemeDark  Theme = identity.ThemeDark
	ThemeLight Theme = identity.ThemeLight

	// DefaultTheme applies when nothing valid is stored.
	DefaultTheme = ThemeDark
)

// ParseTheme returns the theme named by raw, or [DefaultTheme].
func ParseTheme(raw any) Theme {
	switch name, _ := raw.(string); Theme(name) {
	case ThemeDark:
		return ThemeDark
	case ThemeLight:
		return ThemeLight
	default:
		return DefaultTheme
	}
}

// Connections lists the external accounts linked to a profile.
type Connections struct {
	Discord bool `json:"discord"`
}

// Preferences is the display profile of one account.
type Preferences struct {
	UserID      string      `json:"user_id"`
	Username    string      `json:"username"`
	Email       string      `json:"email,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	Theme       Theme       `json:"theme"`
	Favorites   []string    `json:"favorite_scripts"`
	Connections Connections `json:"connections"`
}

// Patch is a partial preference update. Nil fields are left unchanged; an empty
// AvatarURL removes the avatar.
type Patch struct {
	Username  *string   `json:"username,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Theme     *Theme    `json:"theme,omitempty"`
	Favorites *[]string `json:"favorite_scripts,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (patch Patch) Empty() bool {
	return patch.Username == nil && patch.AvatarURL == nil && patch.Theme == nil && patch.Favorites == nil
}

func (patch Patch) attributes() session.Attributes {
	attributes := session.Attributes{}
	if patch.Username != nil {
		attributes[identity.AttrUsername] = *patch.Username
	}
	if patch.AvatarURL != nil {
		if *patch.AvatarURL == "" {
			attributes[identity.AttrAvatarURL] = nil
		} else {
			attributes[identity.AttrAvatarURL] = *patch.AvatarURL
		}
	}
	if patch.Theme != nil {
		attributes[identity.AttrTheme] = string(*patch.Theme)
	}
	if patch.Favorites != nil {
		attributes[identity.AttrFavorites] = *patch.Favorites
	}
	return attributes
}

// FromUser builds preferences from an account.
func FromUser(user *session.User) *Preferences {
	preferences := &Preferences{
		UserID:    user.ID,
		Username:  user.Username(),
		Email:     user.Email,
		Theme:     ParseTheme(user.Metadata[identity.AttrTheme]),
		Favorites: favorites(user.Metadata[identity.AttrFavorites]),
		Connections: Connections{
			Discord: user.Provider == identity.ProviderDiscord,
		},
	}
	preferences.AvatarURL, _ = user.Metadata[identity.AttrAvatarURL].(string)
	return preferences
}

// favorites reads the stored list, which is []any after a JSON round trip.
func favorites(raw any) []string {
	switch list := raw.(type) {
	case []string:
		return slices.Clone(list)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if id, ok := item.(string); ok {
				out = append(out, id)
			}
		}
		return out
	default:
		return []string{}
	}
}

// # Store Contract

// Store reads and partially updates preferences, keyed by principal ID.
type Store interface {
	Load(ctx context.Context, userID string) (*Preferences, error)
	Save(ctx context.Context, userID string, patch Patch) (*Preferences, error)
}

// Accounts is the account access [AccountStore] needs.
type Accounts interface {
	FindUser(ctx context.Context, userID string) (*session.User, error)
	UpdateUserAttributes(ctx context.Context, userID string, attributes session.Attributes) (*session.User, error)
}

// AccountStore implements [Store] over the account attribute bag.
type AccountStore struct {
	accounts Accounts
}

// NewAccountStore creates a new [AccountStore].
func NewAccountStore(accounts Accounts) *AccountStore {
	return &AccountStore{accounts: accounts}
}

// Load returns the preferences of an account.
func (store *AccountStore) Load(ctx context.Context, userID string) (*Preferences, error) {
	user, err := store.accounts.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromUser(user), nil
}

// Save applies a partial update and returns the resulting preferences.
func (store *AccountStore) Save(ctx context.Context, userID string, patch Patch) (*Preferences, error) {
	user, err := store.accounts.UpdateUserAttributes(ctx, userID, patch.attributes())
	if err != nil {
		return nil, err
	}
	return FromUser(user), nil
}
