// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session owns accounts, sessions and the stream of session change events.

It is the only writer of identity state. Every mutation (sign-in, sign-out,
token refresh, attribute update, role change) goes through [Service], which
persists it and then publishes an [Event] on the per-user bus. Readers never
poll; they subscribe through a [Store] and fold the events they receive.

# Architecture

  - Service: use cases over the repositories, the cache and the event bus.
  - Client: the [Store] contract bound to one caller's session token.
  - Repositories: PostgreSQL for accounts and sessions, Redis for the cache,
    OAuth state and the event bus.
  - Provider: external identity providers (Discord).
*/
package session

import (
	"context"
	"maps"
	"time"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/apperr"
)

// # Domain Entities

// Status is the administrative state of an account.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// User is a registered account together with its free-form attribute bag.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email,omitempty"`
	PasswordHash string         `json:"-"`
	Provider     string         `json:"provider"`
	ProviderID   string         `json:"-"`
	Metadata     map[string]any `json:"user_metadata"`
	Status       Status         `json:"status"`
	LastSignInAt *time.Time     `json:"last_sign_in_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Record converts the account into the raw identity record read by the resolver.
func (user *User) Record() *identity.Record {
	if user == nil {
		return nil
	}
	return &identity.Record{
		ID:       user.ID,
		Email:    user.Email,
		Provider: user.Provider,
		Metadata: maps.Clone(user.Metadata),
	}
}

// Username returns the username attribute, or "".
func (user *User) Username() string {
	if user == nil {
		return ""
	}
	username, _ := user.Metadata[identity.AttrUsername].(string)
	return username
}

// Session is an authenticated session.
//
// The ID is stable for the life of the session. RefreshToken is only populated
// on the value returned from sign-in or refresh; storage keeps its hash.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	TokenHash    string    `json:"-"`
	RefreshToken string    `json:"-"`
	AccessToken  string    `json:"access_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserAgent    string    `json:"-"`
	IPAddress    string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	User         *User     `json:"user"`
}

// Expired reports whether the session is past its expiry at now.
func (session *Session) Expired(now time.Time) bool {
	return !session.ExpiresAt.After(now)
}

// # Change Events

// EventKind names a session change.
type EventKind string

const (
	EventInitialSession EventKind = "initial_session"
	EventSignedIn       EventKind = "signed_in"
	EventSignedOut      EventKind = "signed_out"
	EventTokenRefreshed EventKind = "token_refreshed"
	EventUserUpdated    EventKind = "user_updated"
)

// Event is one session change.
//
// SessionID is empty for user-wide events (attribute updates, revocation of
// every session). User is nil when the event ends the session. ExpiresAt is
// set on token_refreshed only.
type Event struct {
	Kind      EventKind `json:"kind"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	User      *User     `json:"user,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Origin    string    `json:"origin,omitempty"`
	At        time.Time `json:"at"`
}

// Attributes is a partial update of a user's attribute bag. A nil value removes the key.
type Attributes map[string]any

// # Store Contract

/*
Store is the session store seen by one caller.

It exposes the current session, a change subscription and the operations that
change it. Implementations deliver events in the order the underlying
operations complete.
*/
type Store interface {

	/*
		Current returns the caller's session, or nil when anonymous.

		Parameters:
		  - ctx: context.Context (bounds the lookup)

		Returns:
		  - *Session: Active session with its user, or nil
		  - error: Lookup failures (timeouts included)
	*/
	Current(ctx context.Context) (*Session, error)

	/*
		Subscribe registers for change events until ctx ends or the returned
		function is called. The channel is closed on unsubscribe.
	*/
	Subscribe(ctx context.Context) (<-chan Event, func())

	/*
		SignIn authenticates with email and password.

		Returns:
		  - *Session: The new session
		  - error: [ErrInvalidCredentials] or [ErrAccountSuspended]
	*/
	SignIn(ctx context.Context, email, password string) (*Session, error)

	/*
		SignInWithProvider starts an external sign-in and returns the URL to redirect to.
	*/
	SignInWithProvider(ctx context.Context, provider string) (string, error)

	/*
		SignOut ends the caller's session. Signing out without a session is not an error.
	*/
	SignOut(ctx context.Context) error

	/*
		UpdateUserAttributes merges a partial attribute update into the caller's account.

		Returns:
		  - *User: The updated account
		  - error: Validation failures, or Unauthorized when anonymous
	*/
	UpdateUserAttributes(ctx context.Context, attributes Attributes) (*User, error)
}

// # Errors

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = apperr.Unauthorized("Invalid login credentials")

	// ErrAccountSuspended is returned when a suspended account signs in.
	ErrAccountSuspended = apperr.Forbidden("This account has been suspended")

	// ErrNoSession is returned by operations that need a signed-in caller.
	ErrNoSession = apperr.Unauthorized("Authentication required")

	// ErrInvalidState is returned when a provider callback carries an unknown state.
	ErrInvalidState = apperr.Unauthorized("Sign-in link is invalid or has expired")
)
