// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package guard_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/essence/internal/access"
	"github.com/taibuivan/essence/internal/authstate"
	"github.com/taibuivan/essence/internal/guard"
	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/metrics"
)

var (
	member = &identity.Principal{ID: "u1", DisplayName: "tai"}
	admin  = &identity.Principal{ID: "u2", DisplayName: "boss", Role: identity.RoleAdmin, IsElevated: true}
)

func snapshotOf(principal *identity.Principal) authstate.Snapshot {
	state := authstate.Anonymous
	if principal != nil {
		state = authstate.Authenticated
		if principal.IsElevated {
			state = authstate.AuthenticatedElevated
		}
	}
	return authstate.Snapshot{State: state, Principal: principal}
}

/*
TestGuard_Step maps every decision to its outcome.
*/
func TestGuard_Step(t *testing.T) {
	tests := []struct {
		name        string
		requirement access.Requirement
		snapshot    authstate.Snapshot
		kind        guard.Kind
		location    string
	}{
		{"loading_dominates", access.AdminOnly, authstate.Initial(), guard.Loading, ""},
		{"anonymous_on_admin_goes_to_login", access.AdminOnly, snapshotOf(nil), guard.Navigate, "/login?redirect_to=%2Fadmin%3Ftab%3Dkeys"},
		{"member_on_admin_goes_to_dashboard", access.AdminOnly, snapshotOf(member), guard.Navigate, "/dashboard"},
		{"admin_on_admin_renders", access.AdminOnly, snapshotOf(admin), guard.Render, ""},
		{"member_on_authenticated_renders", access.Authenticated, snapshotOf(member), guard.Render, ""},
		{"anonymous_on_public_renders", access.Public, snapshotOf(nil), guard.Render, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := guard.New(tt.requirement, "/admin?tab=keys", nil).Step(tt.snapshot)

			assert.Equal(t, tt.kind, outcome.Kind)
			assert.Equal(t, tt.location, outcome.Location())
			assert.Equal(t, tt.kind == guard.Navigate, outcome.Replace)
		})
	}
}

/*
TestGuard_StepCountsDecisions verifies the decision counter.
*/
func TestGuard_StepCountsDecisions(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := metrics.New(registry)
	g := guard.New(access.Authenticated, "/dashboard", recorder)

	g.Step(snapshotOf(nil))
	g.Step(snapshotOf(member))
	g.Step(snapshotOf(member))

	count, err := testutil.GatherAndCount(registry, "essence_guard_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per decision")
}

// scriptedSource replays snapshots and then closes.
type scriptedSource struct {
	snapshots []authstate.Snapshot
}

func (source scriptedSource) Watch(context.Context) <-chan authstate.Snapshot {
	channel := make(chan authstate.Snapshot, len(source.snapshots))
	for _, snapshot := range source.snapshots {
		channel <- snapshot
	}
	close(channel)
	return channel
}

func collect(t *testing.T, updates <-chan guard.Update) []guard.Update {
	t.Helper()
	var out []guard.Update
	timeout := time.After(time.Second)
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return out
			}
			out = append(out, update)
		case <-timeout:
			t.Fatal("watch did not finish")
		}
	}
}

/*
TestGuard_Watch verifies re-evaluation, duplicate suppression and notices.
*/
func TestGuard_Watch(t *testing.T) {
	elevatedSignIn := snapshotOf(admin)
	elevatedSignIn.Notice = "Logged In As boss (ADMIN)"

	source := scriptedSource{snapshots: []authstate.Snapshot{
		authstate.Initial(),
		snapshotOf(member),
		snapshotOf(member),
		elevatedSignIn,
		snapshotOf(admin),
		snapshotOf(nil),
	}}

	updates := collect(t, guard.New(access.AdminOnly, "/admin", nil).Watch(context.Background(), source))
	require.Len(t, updates, 4)

	assert.Equal(t, guard.Loading, updates[0].Outcome.Kind)
	assert.Equal(t, "/dashboard", updates[1].Outcome.Location())
	assert.Equal(t, guard.Render, updates[2].Outcome.Kind)
	assert.Equal(t, "Logged In As boss (ADMIN)", updates[2].Notice)

	// Sign-out while the admin page is open navigates immediately.
	assert.Equal(t, guard.Navigate, updates[3].Outcome.Kind)
	assert.Equal(t, "/login?redirect_to=%2Fadmin", updates[3].Outcome.Location())
}
