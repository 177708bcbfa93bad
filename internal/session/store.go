// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByProvider returns the account linked to an external identity.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database failures
	*/
	FindByProvider(context context.Context, provider, providerID string) (*User, error)

	/*
		Create persists a brand-new account.
	*/
	Create(context context.Context, user *User) error

	/*
		UpdateMetadata replaces the attribute bag of an account.
	*/
	UpdateMetadata(context context.Context, userID string, metadata map[string]any) error

	/*
		UpdateStatus changes the administrative status of an account.
	*/
	UpdateStatus(context context.Context, userID string, status Status) error

	/*
		TouchSignIn records a successful sign-in time.
	*/
	TouchSignIn(context context.Context, userID string, at time.Time) error
}

// # Session Data Access

// SessionRepository defines the data access contract for sessions.
type SessionRepository interface {

	/*
		Create persists a new session.
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash returns the live session matching the token hash.

		Returns:
		  - *Session: Hydrated entity (without user)
		  - error: apperr.NotFound when missing, revoked or expired
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		FindByID returns the live session with the given ID.
	*/
	FindByID(context context.Context, id string) (*Session, error)

	/*
		Rotate replaces the token hash and expiry of a session, keeping its ID.
	*/
	Rotate(context context.Context, sessionID, tokenHash string, expiresAt time.Time) error

	/*
		Revoke permanently invalidates one session.
	*/
	Revoke(context context.Context, sessionID string) error

	/*
		RevokeAll invalidates every live session of a user and returns their token hashes.
	*/
	RevokeAll(context context.Context, userID string) ([]string, error)

	/*
		DeleteExpired physically removes sessions past their expiry or revoked
		long ago, and returns what it removed.
	*/
	DeleteExpired(context context.Context) ([]PurgedSession, error)
}

// PurgedSession is one row removed by [SessionRepository.DeleteExpired].
// Revoked rows were already announced when they were revoked.
type PurgedSession struct {
	ID      string
	UserID  string
	Revoked bool
}

// # Volatile Data Access

// ErrCacheMiss is returned by [Cache] reads for absent keys.
var ErrCacheMiss = errors.New("session: cache miss")

// Cache keeps hot session and account lookups out of PostgreSQL.
type Cache interface {
	GetSession(context context.Context, tokenHash string) (*Session, error)
	SetSession(context context.Context, session *Session, ttl time.Duration) error
	DeleteSessions(context context.Context, tokenHashes ...string) error

	GetUser(context context.Context, userID string) (*User, error)
	SetUser(context context.Context, user *User, ttl time.Duration) error
	DeleteUser(context context.Context, userID string) error
}

// Bus carries change events between processes, partitioned by user.
type Bus interface {

	/*
		Publish delivers an event to every subscriber of its user.
	*/
	Publish(context context.Context, event Event) error

	/*
		Subscribe receives the events of one user until the returned function is
		called or context ends. The subscription is active when Subscribe returns.
	*/
	Subscribe(context context.Context, userID string) (<-chan Event, func(), error)
}

// PendingSignIn is the state kept between starting and completing a provider sign-in.
type PendingSignIn struct {
	Provider   string `json:"provider"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// StateStore keeps single-use OAuth state values.
type StateStore interface {

	/*
		Save stores a pending sign-in under state for ttl.
	*/
	Save(context context.Context, state string, pending PendingSignIn, ttl time.Duration) error

	/*
		Consume returns and deletes the pending sign-in. Unknown states yield [ErrInvalidState].
	*/
	Consume(context context.Context, state string) (*PendingSignIn, error)
}
