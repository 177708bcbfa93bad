// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package access implements the authorization gate for navigable views.

[Evaluate] is a synchronous decision over already-resolved state: it never
performs I/O and never retries. Callers that are still resolving a session
pass loading=true and receive [Pending] until they know who the caller is.
*/
package access

import (
	"fmt"

	"github.com/taibuivan/essence/internal/identity"
)

// # Redirect Targets

const (
	// LoginPath receives anonymous callers of authenticated views.
	LoginPath = "/login"

	// DashboardPath receives authenticated callers of admin-only views.
	DashboardPath = "/dashboard"
)

// # Requirements

// Requirement declares what a protected view needs from its caller.
type Requirement struct {
	RequiresAuth  bool `json:"requires_auth"`
	RequiresAdmin bool `json:"requires_admin"`
}

// DefaultRequirement is the requirement of a view that declares nothing: authentication only.
func DefaultRequirement() Requirement {
	return Requirement{RequiresAuth: true}
}

var (
	// Public views are reachable by anyone.
	Public = Requirement{}

	// Authenticated views need a signed-in principal.
	Authenticated = Requirement{RequiresAuth: true}

	// AdminOnly views need an elevated principal.
	AdminOnly = Requirement{RequiresAuth: true, RequiresAdmin: true}
)

// # Decisions

// Decision is the outcome of evaluating a [Requirement].
type Decision int

const (
	// Pending means the session is still resolving; show a placeholder and do not redirect.
	Pending Decision = iota

	// Allow renders the guarded view.
	Allow

	// RedirectToLogin sends an anonymous caller to [LoginPath].
	RedirectToLogin

	// RedirectToDashboard sends a non-elevated caller to [DashboardPath].
	RedirectToDashboard
)

// String returns the snake_case name used in logs and metrics.
func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToDashboard:
		return "redirect_to_dashboard"
	default:
		return "unknown"
	}
}

// Target returns the redirect path for redirect decisions and "" otherwise.
func (d Decision) Target() string {
	switch d {
	case RedirectToLogin:
		return LoginPath
	case RedirectToDashboard:
		return DashboardPath
	default:
		return ""
	}
}

// IsRedirect reports whether d navigates away from the requested view.
func (d Decision) IsRedirect() bool {
	return d.Target() != ""
}

// MarshalText implements [encoding.TextMarshaler].
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Decision) UnmarshalText(text []byte) error {
	for _, candidate := range []Decision{Pending, Allow, RedirectToLogin, RedirectToDashboard} {
		if candidate.String() == string(text) {
			*d = candidate
			return nil
		}
	}
	return fmt.Errorf("access: unknown decision %q", text)
}

// # Evaluation

// Evaluate decides whether principal may view content behind requirement.
//
// # Ordering
//
//  1. A loading session is always [Pending].
//  2. Authentication is checked before elevation, so an anonymous caller of an
//     admin-only view goes to login rather than to the dashboard.
//  3. Elevation is checked against a nil-safe principal.
func Evaluate(principal *identity.Principal, requirement Requirement, isSessionLoading bool) Decision {
	if isSessionLoading {
		return Pending
	}

	if requirement.RequiresAuth && principal == nil {
		return RedirectToLogin
	}

	if requirement.RequiresAdmin && !principal.Elevated() {
		return RedirectToDashboard
	}

	return Allow
}
