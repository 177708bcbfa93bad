// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/session"
)

/*
TestSignUp_CreatesAccountAndSession verifies the default attribute bag and the first session.
*/
func TestSignUp_CreatesAccountAndSession(t *testing.T) {
	f := newFixture()

	s := f.signUp("tai@essence.gg", "tai")

	require.NotNil(t, s.User)
	assert.NotEmpty(t, s.ID)
	assert.NotEmpty(t, s.RefreshToken)
	assert.Equal(t, "access:"+s.User.ID+":"+s.ID, s.AccessToken)
	assert.Equal(t, "tai", s.User.Metadata[identity.AttrUsername])
	assert.Equal(t, identity.ThemeDark, s.User.Metadata[identity.AttrTheme])
	assert.NotContains(t, s.User.Metadata, identity.AttrRole)
	assert.Equal(t, identity.ProviderEmail, s.User.Provider)
	assert.Equal(t, []session.EventKind{session.EventSignedIn}, f.bus.kinds())
}

/*
TestSignUp_Rejections covers validation failures and duplicate emails.
*/
func TestSignUp_Rejections(t *testing.T) {
	f := newFixture()
	f.signUp("taken@essence.gg", "taken")

	tests := []struct {
		name  string
		input session.SignUpInput
		code  string
	}{
		{"bad_email", session.SignUpInput{Email: "nope", Password: "secret-pass", Username: "abc"}, apperr.CodeValidation},
		{"short_password", session.SignUpInput{Email: "a@b.cd", Password: "123", Username: "abc"}, apperr.CodeValidation},
		{"bad_username", session.SignUpInput{Email: "a@b.cd", Password: "secret-pass", Username: "a b"}, apperr.CodeValidation},
		{"duplicate_email", session.SignUpInput{Email: "taken@essence.gg", Password: "secret-pass", Username: "other"}, apperr.CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SignUp(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, tt.code), "got %v", err)
		})
	}
}

/*
TestSignIn_Credentials verifies that every credential failure looks the same.
*/
func TestSignIn_Credentials(t *testing.T) {
	f := newFixture()
	f.signUp("tai@essence.gg", "tai")
	ctx := context.Background()

	_, err := f.service.SignIn(ctx, session.SignInInput{Email: "tai@essence.gg", Password: "wrong"})
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)

	_, err = f.service.SignIn(ctx, session.SignInInput{Email: "ghost@essence.gg", Password: "secret-pass"})
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)

	s, err := f.service.SignIn(ctx, session.SignInInput{Email: " tai@essence.gg ", Password: "secret-pass"})
	require.NoError(t, err)
	assert.NotNil(t, s.User.LastSignInAt)
}

/*
TestSignIn_Suspended verifies that suspended accounts cannot sign in.
*/
func TestSignIn_Suspended(t *testing.T) {
	f := newFixture()
	s := f.signUp("tai@essence.gg", "tai")

	_, err := f.service.SetStatus(context.Background(), s.User.ID, session.StatusSuspended)
	require.NoError(t, err)

	_, err = f.service.SignIn(context.Background(), session.SignInInput{Email: "tai@essence.gg", Password: "secret-pass"})
	assert.ErrorIs(t, err, session.ErrAccountSuspended)
}

/*
TestLookup_Lifecycle follows a token through lookup, refresh and sign-out.
*/
func TestLookup_Lifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.signUp("tai@essence.gg", "tai")

	found, err := f.service.Lookup(ctx, s.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, s.ID, found.ID)
	assert.Equal(t, "tai", found.User.Username())

	record, err := f.service.LookupRecord(ctx, s.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, record.ID)

	refreshed, err := f.service.Refresh(ctx, s.RefreshToken, "ua", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, refreshed.ID, "session id is stable across refresh")
	assert.NotEqual(t, s.RefreshToken, refreshed.RefreshToken)

	old, err := f.service.Lookup(ctx, s.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, old, "the rotated-out token no longer resolves")

	require.NoError(t, f.service.SignOut(ctx, refreshed.RefreshToken))
	gone, err := f.service.Lookup(ctx, refreshed.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Idempotent.
	assert.NoError(t, f.service.SignOut(ctx, refreshed.RefreshToken))

	assert.Equal(t, []session.EventKind{
		session.EventSignedIn,
		session.EventTokenRefreshed,
		session.EventSignedOut,
	}, f.bus.kinds())
}

/*
TestLookup_Anonymous covers the inputs that resolve to no session without error.
*/
func TestLookup_Anonymous(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.signUp("tai@essence.gg", "tai")

	found, err := f.service.Lookup(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, found)

	found, err = f.service.Lookup(ctx, "unknown-token")
	assert.NoError(t, err)
	assert.Nil(t, found)

	f.sessions.expire(s.ID)
	found, err = f.service.Lookup(ctx, s.RefreshToken)
	assert.NoError(t, err)
	assert.Nil(t, found)

	_, err = f.service.Refresh(ctx, "unknown-token", "", "")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

/*
TestLookup_Timeout verifies that a slow store surfaces the context deadline.
*/
func TestLookup_Timeout(t *testing.T) {
	f := newFixture()
	s := f.signUp("tai@essence.gg", "tai")
	f.sessions.delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	found, err := f.service.Lookup(ctx, s.RefreshToken)
	assert.Nil(t, found)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

/*
TestUpdateUserAttributes_Validation verifies which keys may be written.
*/
func TestUpdateUserAttributes_Validation(t *testing.T) {
	f := newFixture()
	s := f.signUp("tai@essence.gg", "tai")

	tests := []struct {
		name       string
		attributes session.Attributes
	}{
		{"empty", session.Attributes{}},
		{"role_is_not_writable", session.Attributes{identity.AttrRole: "admin"}},
		{"unknown_key", session.Attributes{"is_admin": true}},
		{"bad_theme", session.Attributes{identity.AttrTheme: "blue"}},
		{"non_string_username", session.Attributes{identity.AttrUsername: 42}},
		{"bad_avatar", session.Attributes{identity.AttrAvatarURL: "javascript:alert(1)"}},
		{"bad_favorites", session.Attributes{identity.AttrFavorites: []any{"a", 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.UpdateUserAttributes(context.Background(), s.User.ID, tt.attributes)
			assert.True(t, apperr.HasCode(err, apperr.CodeValidation), "got %v", err)
		})
	}

	user, err := f.service.FindUser(context.Background(), s.User.ID)
	require.NoError(t, err)
	assert.NotContains(t, user.Metadata, identity.AttrRole)
}

/*
TestUpdateUserAttributes_Merge verifies partial merges, removals and the published event.
*/
func TestUpdateUserAttributes_Merge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.signUp("tai@essence.gg", "tai")

	user, err := f.service.UpdateUserAttributes(ctx, s.User.ID, session.Attributes{
		identity.AttrTheme:     identity.ThemeLight,
		identity.AttrAvatarURL: "https://cdn.test/me.png",
		identity.AttrFavorites: []any{"a", "b", "a", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, identity.ThemeLight, user.Metadata[identity.AttrTheme])
	assert.Equal(t, "tai", user.Metadata[identity.AttrUsername])
	assert.Equal(t, []string{"a", "b"}, user.Metadata[identity.AttrFavorites])

	user, err = f.service.UpdateUserAttributes(ctx, s.User.ID, session.Attributes{identity.AttrAvatarURL: nil})
	require.NoError(t, err)
	assert.NotContains(t, user.Metadata, identity.AttrAvatarURL)

	kinds := f.bus.kinds()
	assert.Equal(t, session.EventUserUpdated, kinds[len(kinds)-1])
}

/*
TestSetRole verifies role assignment and rejection of unknown roles.
*/
func TestSetRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.signUp("tai@essence.gg", "tai")

	_, err := f.service.SetRole(ctx, s.User.ID, identity.RoleUnknown)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	user, err := f.service.SetRole(ctx, s.User.ID, identity.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Metadata[identity.AttrRole])

	principal := identity.NewResolver(nil).Resolve(user.Record())
	assert.True(t, principal.Elevated())
}

/*
TestSetStatus_SuspendRevokesSessions verifies that suspension ends every session.
*/
func TestSetStatus_SuspendRevokesSessions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := f.signUp("tai@essence.gg", "tai")
	second, err := f.service.SignIn(ctx, session.SignInInput{Email: "tai@essence.gg", Password: "secret-pass"})
	require.NoError(t, err)

	_, err = f.service.SetStatus(ctx, first.User.ID, "frozen")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = f.service.SetStatus(ctx, first.User.ID, session.StatusSuspended)
	require.NoError(t, err)

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		found, err := f.service.Lookup(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, found)
	}

	kinds := f.bus.kinds()
	assert.Equal(t, session.EventSignedOut, kinds[len(kinds)-1])
}

/*
TestProviderSignIn_Flow covers the start and completion of an external sign-in.
*/
func TestProviderSignIn_Flow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.StartProviderSignIn(ctx, "myspace", "")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	consentURL, err := f.service.StartProviderSignIn(ctx, "discord", "/profile")
	require.NoError(t, err)
	parsed, err := url.Parse(consentURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	s, redirectTo, err := f.service.CompleteProviderSignIn(ctx, session.ProviderCallback{State: state, Code: "good-code"})
	require.NoError(t, err)
	assert.Equal(t, "/profile", redirectTo)
	assert.Equal(t, "discord", s.User.Provider)
	assert.Equal(t, "Disc", s.User.Username())
	assert.Equal(t, identity.ThemeDark, s.User.Metadata[identity.AttrTheme])
	assert.Equal(t, "https://cdn.test/a.png", s.User.Metadata[identity.AttrAvatarURL])

	// The state is single use.
	_, _, err = f.service.CompleteProviderSignIn(ctx, session.ProviderCallback{State: state, Code: "good-code"})
	assert.ErrorIs(t, err, session.ErrInvalidState)

	// A second sign-in reuses the linked account.
	consentURL, err = f.service.StartProviderSignIn(ctx, "discord", "//evil.test")
	require.NoError(t, err)
	parsed, _ = url.Parse(consentURL)
	again, redirectTo, err := f.service.CompleteProviderSignIn(ctx, session.ProviderCallback{State: parsed.Query().Get("state"), Code: "good-code"})
	require.NoError(t, err)
	assert.Empty(t, redirectTo)
	assert.Equal(t, s.User.ID, again.User.ID)
}

/*
TestProviderSignIn_EmailConflict verifies that a provider email owned by another account is refused.
*/
func TestProviderSignIn_EmailConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.signUp("disc@user.gg", "owner")

	consentURL, err := f.service.StartProviderSignIn(ctx, "discord", "")
	require.NoError(t, err)
	parsed, _ := url.Parse(consentURL)

	_, _, err = f.service.CompleteProviderSignIn(ctx, session.ProviderCallback{State: parsed.Query().Get("state"), Code: "good-code"})
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
}

/*
TestSafeRedirectPath verifies that only local paths survive.
*/
func TestSafeRedirectPath(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"/dashboard", "/dashboard"},
		{"/admin/keys?page=2", "/admin/keys?page=2"},
		{"", ""},
		{"dashboard", ""},
		{"//evil.test", ""},
		{"/\\evil.test", ""},
		{"https://evil.test", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, session.SafeRedirectPath(tt.raw))
		})
	}
}

/*
TestPurgeExpired verifies that the janitor removes dead sessions.
*/
func TestPurgeExpired(t *testing.T) {
	f := newFixture()
	s := f.signUp("tai@essence.gg", "tai")
	f.sessions.expire(s.ID)

	purged, err := f.service.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	last := f.bus.published[len(f.bus.published)-1]
	assert.Equal(t, session.EventSignedOut, last.Kind)
	assert.Equal(t, s.ID, last.SessionID)
	assert.Equal(t, s.User.ID, last.UserID)
}

/*
TestRecordBySession verifies that access-token sessions resolve to the current account state.
*/
func TestRecordBySession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.signUp("tai@essence.gg", "tai")

	record, err := f.service.RecordBySession(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Nil(t, record.Metadata[identity.AttrRole])

	_, err = f.service.SetRole(ctx, s.User.ID, identity.RoleAdmin)
	require.NoError(t, err)
	record, err = f.service.RecordBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", record.Metadata[identity.AttrRole])

	_, err = f.service.SetStatus(ctx, s.User.ID, session.StatusSuspended)
	require.NoError(t, err)
	record, err = f.service.RecordBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, record, "suspension revokes the session behind the token")

	record, err = f.service.RecordBySession(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, record)
}

/*
TestRefresh_UserLookupFailure verifies that an outage during refresh is not reported as a bad token.
*/
func TestRefresh_UserLookupFailure(t *testing.T) {
	f := newFixture()
	s := f.signUp("tai@essence.gg", "tai")

	outage := errors.New("connection reset")
	f.users.mu.Lock()
	f.users.findErr = outage
	f.users.mu.Unlock()

	_, err := f.service.Refresh(context.Background(), s.RefreshToken, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, outage)
	assert.False(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}
