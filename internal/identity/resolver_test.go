// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/essence/internal/identity"
)

const ownerEmail = "owner@site.com"

func newResolver() *identity.Resolver {
	return identity.NewResolver([]string{ownerEmail, "  ", ""})
}

/*
TestResolver_NilRecord verifies that an absent record resolves to no principal.
*/
func TestResolver_NilRecord(t *testing.T) {
	assert.Nil(t, newResolver().Resolve(nil))
}

/*
TestResolver_Scenarios covers the documented elevation scenarios.
*/
func TestResolver_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		record   *identity.Record
		elevated bool
	}{
		{
			name:     "plain_user_not_on_allow_list",
			record:   &identity.Record{ID: "u1", Email: "x@y.com", Metadata: map[string]any{"role": "user"}},
			elevated: false,
		},
		{
			name:     "allow_listed_email_without_role",
			record:   &identity.Record{ID: "u2", Email: ownerEmail},
			elevated: true,
		},
		{
			name:     "privileged_role_without_email",
			record:   &identity.Record{ID: "u3", Metadata: map[string]any{"role": "owner"}},
			elevated: true,
		},
		{
			name:     "allow_listed_email_with_plain_role",
			record:   &identity.Record{ID: "u4", Email: ownerEmail, Metadata: map[string]any{"role": "user"}},
			elevated: true,
		},
		{
			name:     "head_admin_role",
			record:   &identity.Record{ID: "u5", Email: "a@b.c", Metadata: map[string]any{"role": "head admin"}},
			elevated: true,
		},
		{
			name:     "developer_role",
			record:   &identity.Record{ID: "u6", Metadata: map[string]any{"role": "developer"}},
			elevated: true,
		},
		{
			name:     "reseller_is_not_privileged",
			record:   &identity.Record{ID: "u7", Metadata: map[string]any{"role": "reseller"}},
			elevated: false,
		},
	}

	resolver := newResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal := resolver.Resolve(tt.record)
			require.NotNil(t, principal)
			assert.Equal(t, tt.elevated, principal.IsElevated)
			assert.Equal(t, tt.record.ID, principal.ID)
		})
	}
}

/*
TestResolver_FailClosed checks that malformed or unexpected role values never elevate.
*/
func TestResolver_FailClosed(t *testing.T) {
	values := []any{
		"Admin", "ADMIN", " admin", "admin ", "administrator", "headadmin", "",
		42, true, nil, []any{"admin"}, map[string]any{"role": "admin"},
	}

	resolver := newResolver()
	for _, value := range values {
		principal := resolver.Resolve(&identity.Record{
			ID:       "u",
			Email:    "someone@else.com",
			Metadata: map[string]any{"role": value},
		})
		require.NotNil(t, principal)
		assert.False(t, principal.IsElevated, "role %#v must not elevate", value)
		assert.Equal(t, identity.RoleUnknown, principal.Role)
	}
}

/*
TestResolver_AllowListIsExact verifies that allow-list matching is case-sensitive.
*/
func TestResolver_AllowListIsExact(t *testing.T) {
	resolver := newResolver()

	assert.False(t, resolver.Resolve(&identity.Record{ID: "u", Email: "Owner@Site.com"}).IsElevated)
	assert.False(t, resolver.Resolve(&identity.Record{ID: "u", Email: ""}).IsElevated)
}

/*
TestResolver_Idempotent verifies that resolving the same record twice yields equal principals.
*/
func TestResolver_Idempotent(t *testing.T) {
	record := &identity.Record{
		ID:       "u1",
		Email:    "tai@essence.gg",
		Provider: "discord",
		Metadata: map[string]any{"role": "owner", "username": "tai"},
	}

	resolver := newResolver()
	assert.Equal(t, resolver.Resolve(record), resolver.Resolve(record))
}

/*
TestResolver_DisplayName checks the username and email local-part fallbacks.
*/
func TestResolver_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		record   *identity.Record
		expected string
	}{
		{"username", &identity.Record{Email: "a@b.c", Metadata: map[string]any{"username": "neo"}}, "neo"},
		{"blank_username", &identity.Record{Email: "trinity@b.c", Metadata: map[string]any{"username": "  "}}, "trinity"},
		{"non_string_username", &identity.Record{Email: "morpheus@b.c", Metadata: map[string]any{"username": 7}}, "morpheus"},
		{"no_email", &identity.Record{}, ""},
	}

	resolver := newResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolver.Resolve(tt.record).DisplayName)
		})
	}
}

/*
TestResolver_NilResolver verifies that a nil resolver still resolves roles.
*/
func TestResolver_NilResolver(t *testing.T) {
	var resolver *identity.Resolver

	principal := resolver.Resolve(&identity.Record{ID: "u", Email: ownerEmail, Metadata: map[string]any{"role": "admin"}})
	require.NotNil(t, principal)
	assert.True(t, principal.IsElevated)
}
