// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"sort"
	"strings"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/validate"
)

// # Field Names

const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldProvider = "provider"
	FieldStatus   = "status"
	FieldData     = "data"
)

// # Limits

const (
	minPasswordLength = 6
	maxPasswordLength = 72
	minUsernameLength = 3
	maxUsernameLength = 32
	maxEmailLength    = 255
	maxFavorites      = 200
	maxAvatarURL      = 2048
)

func validateSignUp(input SignUpInput) error {
	validator := &validate.Validator{}

	validator.Required(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, maxEmailLength).
		Email(FieldEmail, input.Email)

	validator.Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, minPasswordLength).
		MaxLen(FieldPassword, input.Password, maxPasswordLength)

	validateUsername(validator, input.Username)

	return validator.Err()
}

func validateUsername(validator *validate.Validator, username string) {
	validator.Required(identity.AttrUsername, username).
		MinLen(identity.AttrUsername, username, minUsernameLength).
		MaxLen(identity.AttrUsername, username, maxUsernameLength).
		Username(identity.AttrUsername, username)
}

// validateAttributes checks a partial attribute update and returns it with
// list values normalized to []string.
func validateAttributes(attributes Attributes) (Attributes, error) {
	validator := &validate.Validator{}
	validator.FailIf(FieldData, len(attributes) == 0, "At least one attribute is required")

	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	normalized := make(Attributes, len(attributes))
	for _, key := range keys {
		value := attributes[key]

		switch key {
		case identity.AttrUsername:
			username, ok := value.(string)
			if !ok {
				validator.FailIf(key, true, "Must be a string")
				continue
			}
			username = strings.TrimSpace(username)
			validateUsername(validator, username)
			normalized[key] = username

		case identity.AttrTheme:
			if value == nil {
				normalized[key] = nil
				continue
			}
			theme, _ := value.(string)
			validator.OneOf(key, theme, identity.ThemeDark, identity.ThemeLight)
			normalized[key] = theme

		case identity.AttrAvatarURL:
			if value == nil {
				normalized[key] = nil
				continue
			}
			avatar, ok := value.(string)
			if !ok {
				validator.FailIf(key, true, "Must be a string")
				continue
			}
			validator.MaxLen(key, avatar, maxAvatarURL).URL(key, avatar)
			normalized[key] = avatar

		case identity.AttrFavorites:
			if value == nil {
				normalized[key] = nil
				continue
			}
			favorites, ok := stringList(value)
			if !ok {
				validator.FailIf(key, true, "Must be a list of strings")
				continue
			}
			validator.FailIf(key, len(favorites) > maxFavorites, "Too many favorites")
			normalized[key] = favorites

		case identity.AttrRole:
			validator.FailIf(key, true, "Role cannot be changed here")

		default:
			validator.FailIf(key, true, "Unknown attribute")
		}
	}

	if err := validator.Err(); err != nil {
		return nil, err
	}
	return normalized, nil
}

// stringList accepts []string or a JSON-decoded []any of strings, dropping duplicates.
func stringList(value any) ([]string, bool) {
	var raw []string

	switch list := value.(type) {
	case []string:
		raw = list
	case []any:
		raw = make([]string, 0, len(list))
		for _, item := range list {
			text, ok := item.(string)
			if !ok {
				return nil, false
			}
			raw = append(raw, text)
		}
	default:
		return nil, false
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out, true
}
