// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package authstate tracks the session lifecycle of one caller.

The lifecycle is a small state machine:

	Unresolved ──first fetch──▶ Anonymous | Authenticated | AuthenticatedElevated
	Anonymous ◀──sign-out / expiry── Authenticated* ◀──sign-in── Anonymous

[Reduce] is the pure transition function. A [Tracker] owns one subscription to
a [session.Store], folds its events through [Reduce] and hands the latest
[Snapshot] to any number of watchers. There is no terminal state.
*/
package authstate

import (
	"fmt"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/session"
)

// # States

// State is a lifecycle state.
type State int

const (
	// Unresolved is the initial state: the first session fetch has not completed.
	Unresolved State = iota
	Anonymous
	Authenticated
	AuthenticatedElevated
)

// String returns the snake_case state name.
func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case AuthenticatedElevated:
		return "authenticated_elevated"
	default:
		return "unknown"
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{Unresolved, Anonymous, Authenticated, AuthenticatedElevated} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("authstate: unknown state %q", text)
}

func stateOf(principal *identity.Principal) State {
	switch {
	case principal == nil:
		return Anonymous
	case principal.Elevated():
		return AuthenticatedElevated
	default:
		return Authenticated
	}
}

// # Snapshots

// Snapshot is the resolved view of a caller at one point in time.
//
// Notice is transient: it is set only on the snapshot produced by the event
// that caused it.
type Snapshot struct {
	State     State               `json:"state"`
	Principal *identity.Principal `json:"principal"`
	Loading   bool                `json:"loading"`
	Notice    string              `json:"notice,omitempty"`
	Version   uint64              `json:"version"`
}

// Initial returns the Unresolved snapshot.
func Initial() Snapshot {
	return Snapshot{State: Unresolved, Loading: true}
}

// Resolver turns a raw record into a principal.
type Resolver interface {
	Resolve(record *identity.Record) *identity.Principal
}

// ElevatedNotice is the notice shown when an elevated principal signs in.
// It names the username, or the full email when there is none.
func ElevatedNotice(principal *identity.Principal) string {
	name := principal.Username
	if name == "" {
		name = principal.Email
	}
	if name == "" {
		name = principal.DisplayName
	}
	return fmt.Sprintf("Logged In As %s (ADMIN)", name)
}

// # Transitions

/*
Reduce applies one session event to a snapshot.

  - initial_session and signed_in resolve the principal from the event's user;
    a nil user means anonymous.
  - signed_out always ends in Anonymous.
  - token_refreshed and user_updated re-resolve from the event's user and keep
    the current principal when the event carries none.

Unknown event kinds leave the snapshot unchanged.
*/
func Reduce(current Snapshot, event session.Event, resolver Resolver) Snapshot {
	var principal *identity.Principal

	switch event.Kind {
	case session.EventInitialSession, session.EventSignedIn:
		principal = resolver.Resolve(event.User.Record())

	case session.EventSignedOut:
		principal = nil

	case session.EventTokenRefreshed, session.EventUserUpdated:
		if event.User == nil {
			principal = current.Principal
		} else {
			principal = resolver.Resolve(event.User.Record())
		}

	default:
		return current
	}

	next := Snapshot{
		State:     stateOf(principal),
		Principal: principal,
		Version:   current.Version + 1,
	}

	if event.Kind == session.EventSignedIn && principal.Elevated() {
		next.Notice = ElevatedNotice(principal)
	}
	return next
}

// Failed is the transition for a first fetch that errored: the caller is treated as anonymous.
func Failed(current Snapshot) Snapshot {
	return Snapshot{State: Anonymous, Version: current.Version + 1}
}
