// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/ctxutil"
	"github.com/taibuivan/essence/internal/platform/middleware"
	"github.com/taibuivan/essence/internal/platform/sec"
)

// # Fakes

type fakeLookup struct {
	record *identity.Record
	err    error
	delay  time.Duration

	// sessions maps live session IDs to their current account record.
	sessions map[string]*identity.Record
}

func (lookup *fakeLookup) wait(ctx context.Context) error {
	if lookup.delay == 0 {
		return nil
	}
	select {
	case <-time.After(lookup.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (lookup *fakeLookup) LookupRecord(ctx context.Context, _ string) (*identity.Record, error) {
	if err := lookup.wait(ctx); err != nil {
		return nil, err
	}
	return lookup.record, lookup.err
}

func (lookup *fakeLookup) RecordBySession(ctx context.Context, sessionID string) (*identity.Record, error) {
	if err := lookup.wait(ctx); err != nil {
		return nil, err
	}
	if lookup.err != nil {
		return nil, lookup.err
	}
	return lookup.sessions[sessionID], nil
}

type fakeVerifier struct {
	claims *sec.AuthClaims
}

func (verifier *fakeVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	if verifier.claims == nil || token != "good" {
		return nil, errors.New("invalid")
	}
	return verifier.claims, nil
}

type observed struct {
	principal *identity.Principal
	pending   bool
	called    bool
}

func capture(seen *observed) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen.called = true
		seen.principal = ctxutil.GetPrincipal(request.Context())
		seen.pending = ctxutil.IsSessionPending(request.Context())
		writer.WriteHeader(http.StatusOK)
	})
}

func cookieRequest() *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	request.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: "opaque"})
	return request
}

/*
TestAuthenticate_Cookie covers resolved, failed, missing and slow session lookups.
*/
func TestAuthenticate_Cookie(t *testing.T) {
	resolver := identity.NewResolver([]string{"ops@essence.app"})

	tests := []struct {
		name         string
		lookup       *fakeLookup
		wantID       string
		wantElevated bool
		wantPending  bool
	}{
		{
			name:         "allow_listed_email",
			lookup:       &fakeLookup{record: &identity.Record{ID: "u1", Email: "ops@essence.app"}},
			wantID:       "u1",
			wantElevated: true,
		},
		{
			name:   "plain_user",
			lookup: &fakeLookup{record: &identity.Record{ID: "u2", Email: "x@y.z"}},
			wantID: "u2",
		},
		{
			name:   "unknown_token",
			lookup: &fakeLookup{},
		},
		{
			name:   "fetch_failed_is_anonymous",
			lookup: &fakeLookup{err: errors.New("db down")},
		},
		{
			name:        "slow_lookup_is_pending",
			lookup:      &fakeLookup{delay: time.Second},
			wantPending: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := &observed{}
			handler := middleware.Authenticate(tt.lookup, &fakeVerifier{}, resolver, 20*time.Millisecond)(capture(seen))

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, cookieRequest())

			require.True(t, seen.called)
			assert.Equal(t, tt.wantPending, seen.pending)
			if tt.wantID == "" {
				assert.Nil(t, seen.principal)
				return
			}
			require.NotNil(t, seen.principal)
			assert.Equal(t, tt.wantID, seen.principal.ID)
			assert.Equal(t, tt.wantElevated, seen.principal.IsElevated)
		})
	}
}

func bearerRequest(token string) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	return request
}

/*
TestAuthenticate_Bearer verifies bearer tokens resolve through their live session, not their claims.
*/
func TestAuthenticate_Bearer(t *testing.T) {
	resolver := identity.NewResolver(nil)
	verifier := &fakeVerifier{claims: &sec.AuthClaims{UserID: "u1", Role: "owner", Username: "boss", SessionID: "s1"}}
	owner := &identity.Record{ID: "u1", Metadata: map[string]any{identity.AttrRole: "owner", identity.AttrUsername: "boss"}}

	tests := []struct {
		name         string
		lookup       *fakeLookup
		wantID       string
		wantElevated bool
		wantPending  bool
	}{
		{
			name:         "live_session",
			lookup:       &fakeLookup{sessions: map[string]*identity.Record{"s1": owner}},
			wantID:       "u1",
			wantElevated: true,
		},
		{
			name: "demoted_since_issue",
			lookup: &fakeLookup{sessions: map[string]*identity.Record{
				"s1": {ID: "u1", Metadata: map[string]any{identity.AttrRole: "user"}},
			}},
			wantID: "u1",
		},
		{
			name:   "revoked_session",
			lookup: &fakeLookup{},
		},
		{
			name:   "lookup_failed",
			lookup: &fakeLookup{err: errors.New("db down")},
		},
		{
			name:        "slow_lookup",
			lookup:      &fakeLookup{delay: time.Second},
			wantPending: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := &observed{}
			handler := middleware.Authenticate(tt.lookup, verifier, resolver, 20*time.Millisecond)(capture(seen))
			handler.ServeHTTP(httptest.NewRecorder(), bearerRequest("good"))

			require.True(t, seen.called)
			assert.Equal(t, tt.wantPending, seen.pending)
			if tt.wantID == "" {
				assert.Nil(t, seen.principal)
				return
			}
			require.NotNil(t, seen.principal)
			assert.Equal(t, tt.wantID, seen.principal.ID)
			assert.Equal(t, tt.wantElevated, seen.principal.IsElevated)
		})
	}

	t.Run("invalid_token", func(t *testing.T) {
		seen := &observed{}
		handler := middleware.Authenticate(&fakeLookup{}, verifier, resolver, time.Second)(capture(seen))

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, bearerRequest("bad"))

		assert.False(t, seen.called)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

/*
TestAuthenticate_RevokedBearerLosesAdmin verifies that a still-valid admin token
whose session is gone cannot pass the admin gate.
*/
func TestAuthenticate_RevokedBearerLosesAdmin(t *testing.T) {
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	publicDER, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	require.NoError(t, err)

	tokens, err := sec.NewTokenServiceFromPEM(
		pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(private)}),
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}),
		"essence.app",
	)
	require.NoError(t, err)

	token, err := tokens.GenerateAccessToken(sec.Subject{UserID: "u1", Role: "admin", SessionID: "s1"}, time.Minute)
	require.NoError(t, err)

	chain := middleware.Authenticate(&fakeLookup{}, tokens, identity.NewResolver(nil), time.Second)(
		middleware.RequireAdmin(capture(&observed{})),
	)

	recorder := httptest.NewRecorder()
	chain.ServeHTTP(recorder, bearerRequest(token))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestRequireGates verifies API status codes for each authorization decision.
*/
func TestRequireGates(t *testing.T) {
	user := &identity.Principal{ID: "u"}
	admin := &identity.Principal{ID: "a", IsElevated: true}

	tests := []struct {
		name      string
		gate      func(http.Handler) http.Handler
		principal *identity.Principal
		pending   bool
		want      int
	}{
		{"auth_anonymous", middleware.RequireAuth, nil, false, http.StatusUnauthorized},
		{"auth_user", middleware.RequireAuth, user, false, http.StatusOK},
		{"auth_pending", middleware.RequireAuth, nil, true, http.StatusServiceUnavailable},
		{"admin_anonymous", middleware.RequireAdmin, nil, false, http.StatusUnauthorized},
		{"admin_user", middleware.RequireAdmin, user, false, http.StatusForbidden},
		{"admin_admin", middleware.RequireAdmin, admin, false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := request.Context()
			if tt.principal != nil {
				ctx = ctxutil.WithPrincipal(ctx, tt.principal)
			}
			if tt.pending {
				ctx = ctxutil.WithSessionPending(ctx)
			}

			recorder := httptest.NewRecorder()
			tt.gate(capture(&observed{})).ServeHTTP(recorder, request.WithContext(ctx))

			assert.Equal(t, tt.want, recorder.Code)
			if tt.pending {
				assert.Equal(t, "1", recorder.Header().Get("Retry-After"))
			}
		})
	}
}
