// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import "strings"

// # Resolver

// Resolver derives a [Principal] from a raw [Record].
//
// The allow-list is copied at construction and never mutated afterwards, which
// makes a Resolver safe for concurrent use.
type Resolver struct {
	allowList map[string]struct{}
}

// NewResolver builds a resolver whose elevated email allow-list is allowList.
// Blank entries are skipped; entries are otherwise kept verbatim.
func NewResolver(allowList []string) *Resolver {
	set := make(map[string]struct{}, len(allowList))
	for _, email := range allowList {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		set[email] = struct{}{}
	}
	return &Resolver{allowList: set}
}

// Resolve returns the principal for record, or nil when there is no record.
//
// # Elevation
//
//  1. The email is on the allow-list (exact match).
//  2. Otherwise the role attribute parses to a privileged [Role].
//
// Either condition is sufficient. Malformed input resolves to not elevated.
func (resolver *Resolver) Resolve(record *Record) *Principal {
	if record == nil {
		return nil
	}

	role := ParseRole(record.Metadata[AttrRole])

	return &Principal{
		ID:          record.ID,
		Email:       record.Email,
		DisplayName: displayName(record),
		Username:    username(record),
		Role:        role,
		IsElevated:  resolver.allowed(record.Email) || role.Privileged(),
		Provider:    record.Provider,
	}
}

// allowed reports whether email is on the allow-list.
func (resolver *Resolver) allowed(email string) bool {
	if resolver == nil || email == "" {
		return false
	}
	_, ok := resolver.allowList[email]
	return ok
}

// username returns the username attribute, or "" when it is missing or blank.
func username(record *Record) string {
	if name, ok := record.Metadata[AttrUsername].(string); ok && strings.TrimSpace(name) != "" {
		return name
	}
	return ""
}

// displayName prefers the username attribute and falls back to the email local-part.
func displayName(record *Record) string {
	if name := username(record); name != "" {
		return name
	}

	local, _, found := strings.Cut(record.Email, "@")
	if !found {
		return record.Email
	}
	return local
}
