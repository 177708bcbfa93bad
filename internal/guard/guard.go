// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package guard acts on authorization decisions.

A [Guard] is bound to one protected location. [Guard.Step] turns a lifecycle
snapshot into an [Outcome]: show a loading placeholder, render, or navigate
away replacing history. [Guard.Watch] re-evaluates on every snapshot so that a
sign-out while a protected page is open navigates away at once.

[Pages] applies the same decision to page requests, and [WatchHandler]
streams outcomes to browsers over server-sent events.
*/
package guard

import (
	"context"
	"fmt"
	"net/url"

	"github.com/taibuivan/essence/internal/access"
	"github.com/taibuivan/essence/internal/authstate"
	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/metrics"
)

// # Outcomes

// Kind is what a guarded view should do.
type Kind int

const (
	// Loading shows a neutral placeholder and does not navigate.
	Loading Kind = iota
	Render
	Navigate
)

// String returns the snake_case kind name.
func (k Kind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Render:
		return "render"
	case Navigate:
		return "navigate"
	default:
		return "unknown"
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (k *Kind) UnmarshalText(text []byte) error {
	for _, candidate := range []Kind{Loading, Render, Navigate} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("guard: unknown outcome kind %q", text)
}

// Outcome is the action for one decision.
type Outcome struct {
	Kind     Kind            `json:"kind"`
	Decision access.Decision `json:"decision"`
	Target   string          `json:"target,omitempty"`
	Replace  bool            `json:"replace,omitempty"`
	From     string          `json:"from,omitempty"`
}

// Location returns the URL to navigate to. Login redirects carry the
// originally requested location in redirect_to.
func (outcome Outcome) Location() string {
	if outcome.Kind != Navigate {
		return ""
	}
	if outcome.Decision == access.RedirectToLogin && outcome.From != "" {
		return outcome.Target + "?" + url.Values{"redirect_to": {outcome.From}}.Encode()
	}
	return outcome.Target
}

// OutcomeFor maps a decision to its outcome for a view at location.
func OutcomeFor(decision access.Decision, location string) Outcome {
	switch {
	case decision == access.Pending:
		return Outcome{Kind: Loading, Decision: decision}
	case decision.IsRedirect():
		outcome := Outcome{Kind: Navigate, Decision: decision, Target: decision.Target(), Replace: true}
		if decision == access.RedirectToLogin {
			outcome.From = location
		}
		return outcome
	default:
		return Outcome{Kind: Render, Decision: decision}
	}
}

// # Guard

// Guard evaluates one protected location.
type Guard struct {
	requirement access.Requirement
	location    string
	metrics     *metrics.Metrics
}

// New creates a guard for a view at location. recorder may be nil.
func New(requirement access.Requirement, location string, recorder *metrics.Metrics) *Guard {
	return &Guard{requirement: requirement, location: location, metrics: recorder}
}

// Step evaluates one snapshot.
func (guard *Guard) Step(snapshot authstate.Snapshot) Outcome {
	decision := access.Evaluate(snapshot.Principal, guard.requirement, snapshot.Loading)
	guard.metrics.GuardDecision(decision.String())
	return OutcomeFor(decision, guard.location)
}

// Update is one element of a [Guard.Watch] stream.
type Update struct {
	Outcome   Outcome             `json:"outcome"`
	State     authstate.State     `json:"state"`
	Principal *identity.Principal `json:"principal"`
	Notice    string              `json:"notice,omitempty"`
}

// Source supplies lifecycle snapshots.
type Source interface {
	Watch(ctx context.Context) <-chan authstate.Snapshot
}

/*
Watch re-evaluates the guard on every snapshot of source.

Consecutive updates with the same outcome, state and principal are
suppressed unless they carry a notice. The channel is closed when source
closes its channel or ctx ends.
*/
func (guard *Guard) Watch(ctx context.Context, source Source) <-chan Update {
	updates := make(chan Update)
	snapshots := source.Watch(ctx)

	go func() {
		defer close(updates)

		var (
			last    Update
			started bool
		)
		for snapshot := range snapshots {
			update := Update{
				Outcome:   guard.Step(snapshot),
				State:     snapshot.State,
				Principal: snapshot.Principal,
				Notice:    snapshot.Notice,
			}

			if started && update.Notice == "" && sameUpdate(last, update) {
				continue
			}
			started, last = true, update

			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates
}

func sameUpdate(a, b Update) bool {
	if a.Outcome != b.Outcome || a.State != b.State {
		return false
	}
	if a.Principal == nil || b.Principal == nil {
		return a.Principal == b.Principal
	}
	return *a.Principal == *b.Principal
}
