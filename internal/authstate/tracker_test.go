// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authstate_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/essence/internal/authstate"
	"github.com/taibuivan/essence/internal/session"
)

// fakeStore is a scriptable session.Store.
type fakeStore struct {
	events  chan session.Event
	current func(ctx context.Context) (*session.Session, error)
	calls   atomic.Int32
}

func newFakeStore(current func(ctx context.Context) (*session.Session, error)) *fakeStore {
	return &fakeStore{events: make(chan session.Event, 8), current: current}
}

func (store *fakeStore) Current(ctx context.Context) (*session.Session, error) {
	store.calls.Add(1)
	return store.current(ctx)
}

func (store *fakeStore) Subscribe(context.Context) (<-chan session.Event, func()) {
	return store.events, func() {}
}

func (store *fakeStore) SignIn(context.Context, string, string) (*session.Session, error) {
	return nil, session.ErrInvalidCredentials
}

func (store *fakeStore) SignInWithProvider(context.Context, string) (string, error) { return "", nil }
func (store *fakeStore) SignOut(context.Context) error                            { return nil }

func (store *fakeStore) UpdateUserAttributes(context.Context, session.Attributes) (*session.User, error) {
	return nil, session.ErrNoSession
}

func awaitState(t *testing.T, snapshots <-chan authstate.Snapshot, want authstate.State) authstate.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snapshot, ok := <-snapshots:
			require.True(t, ok, "watch channel closed before reaching %s", want)
			if snapshot.State == want {
				return snapshot
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

/*
TestTracker_Lifecycle drives a tracker through resolution, elevation and sign-out.
*/
func TestTracker_Lifecycle(t *testing.T) {
	store := newFakeStore(func(context.Context) (*session.Session, error) {
		return &session.Session{ID: "s1", UserID: "u1", User: user("x@y.com", "user")}, nil
	})
	tracker := authstate.NewTracker(store, resolver)

	assert.Equal(t, authstate.Unresolved, tracker.Snapshot().State)
	assert.True(t, tracker.Snapshot().Loading)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snapshots := tracker.Watch(ctx)

	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()

	awaitState(t, snapshots, authstate.Authenticated)

	store.events <- session.Event{Kind: session.EventUserUpdated, User: user("x@y.com", "head admin")}
	awaitState(t, snapshots, authstate.AuthenticatedElevated)

	store.events <- session.Event{Kind: session.EventSignedOut}
	awaitState(t, snapshots, authstate.Anonymous)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	_, open := <-snapshots
	assert.False(t, open, "watchers close when Run returns")
}

/*
TestTracker_FetchFailure verifies that a failing first fetch resolves to anonymous.
*/
func TestTracker_FetchFailure(t *testing.T) {
	store := newFakeStore(func(context.Context) (*session.Session, error) {
		return nil, errors.New("connection refused")
	})
	tracker := authstate.NewTracker(store, resolver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snapshots := tracker.Watch(ctx)
	go func() { _ = tracker.Run(ctx) }()

	snapshot := awaitState(t, snapshots, authstate.Anonymous)
	assert.False(t, snapshot.Loading)
	assert.Equal(t, int32(1), store.calls.Load())
}

/*
TestTracker_FetchTimeoutRetries verifies that a slow first fetch stays loading and is retried.
*/
func TestTracker_FetchTimeoutRetries(t *testing.T) {
	var attempts atomic.Int32
	store := newFakeStore(func(ctx context.Context) (*session.Session, error) {
		if attempts.Add(1) < 3 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return nil, nil
	})
	tracker := authstate.NewTracker(store, resolver,
		authstate.WithLookupTimeout(10*time.Millisecond),
		authstate.WithRetryInterval(time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snapshots := tracker.Watch(ctx)
	go func() { _ = tracker.Run(ctx) }()

	awaitState(t, snapshots, authstate.Anonymous)
	assert.Equal(t, int32(3), attempts.Load())
}

/*
TestTracker_WatchAfterRun verifies that watching a finished tracker yields a closed channel.
*/
func TestTracker_WatchAfterRun(t *testing.T) {
	store := newFakeStore(func(context.Context) (*session.Session, error) { return nil, nil })
	close(store.events)

	tracker := authstate.NewTracker(store, resolver)
	require.NoError(t, tracker.Run(context.Background()))

	_, open := <-tracker.Watch(context.Background())
	assert.False(t, open)
	assert.Equal(t, authstate.Anonymous, tracker.Snapshot().State)
}
