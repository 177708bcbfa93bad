// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/essence/internal/session"
)

const (
	defaultLookupTimeout = 3 * time.Second
	defaultRetryInterval = time.Second
)

// Option configures a [Tracker].
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(tracker *Tracker) { tracker.logger = logger }
}

// WithLookupTimeout bounds each attempt of the first session fetch.
func WithLookupTimeout(timeout time.Duration) Option {
	return func(tracker *Tracker) { tracker.lookupTimeout = timeout }
}

// WithRetryInterval sets the pause between first-fetch attempts that timed out.
func WithRetryInterval(interval time.Duration) Option {
	return func(tracker *Tracker) { tracker.retryInterval = interval }
}

/*
Tracker owns the lifecycle state of one caller.

Only the goroutine running [Tracker.Run] changes the state. Readers call
[Tracker.Snapshot] or [Tracker.Watch]; watchers always get the most recent
snapshot and never slow the tracker down.
*/
type Tracker struct {
	store         session.Store
	resolver      Resolver
	logger        *slog.Logger
	lookupTimeout time.Duration
	retryInterval time.Duration

	mu       sync.Mutex
	snapshot Snapshot
	watchers map[int]chan Snapshot
	nextID   int
	done     bool
}

// NewTracker creates a tracker in the Unresolved state.
func NewTracker(store session.Store, resolver Resolver, options ...Option) *Tracker {
	tracker := &Tracker{
		store:         store,
		resolver:      resolver,
		logger:        slog.Default(),
		lookupTimeout: defaultLookupTimeout,
		retryInterval: defaultRetryInterval,
		snapshot:      Initial(),
		watchers:      make(map[int]chan Snapshot),
	}
	for _, option := range options {
		option(tracker)
	}
	return tracker
}

/*
Run drives the tracker until ctx ends or the store closes its event channel.

# Flow

 1. Subscribe to the store first, so no change between the fetch and the
    subscription is missed.
 2. Fetch the current session. A fetch that times out is retried and the state
    stays Unresolved; any other failure resolves to Anonymous.
 3. Apply events in delivery order.

Watch channels are closed when Run returns.
*/
func (tracker *Tracker) Run(ctx context.Context) error {
	defer tracker.closeWatchers()

	events, unsubscribe := tracker.store.Subscribe(ctx)
	defer unsubscribe()

	if err := tracker.resolveInitial(ctx); err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			tracker.apply(event)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (tracker *Tracker) resolveInitial(ctx context.Context) error {
	for {
		lookupCtx, cancel := context.WithTimeout(ctx, tracker.lookupTimeout)
		current, err := tracker.store.Current(lookupCtx)
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil {
			event := session.Event{Kind: session.EventInitialSession}
			if current != nil {
				event.UserID = current.UserID
				event.SessionID = current.ID
				event.User = current.User
			}
			tracker.apply(event)
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !timedOut {
			tracker.logger.WarnContext(ctx, "session_fetch_failed", slog.String("error", err.Error()))
			tracker.set(Failed(tracker.Snapshot()))
			return nil
		}

		tracker.logger.WarnContext(ctx, "session_lookup_pending", slog.Duration("timeout", tracker.lookupTimeout))

		select {
		case <-time.After(tracker.retryInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (tracker *Tracker) apply(event session.Event) {
	tracker.mu.Lock()
	current := tracker.snapshot
	tracker.mu.Unlock()

	next := Reduce(current, event, tracker.resolver)
	if next.Version == current.Version {
		return
	}

	if next.State != current.State {
		tracker.logger.Debug("session_state_changed",
			slog.String("from", current.State.String()),
			slog.String("to", next.State.String()),
			slog.String("event", string(event.Kind)),
		)
	}
	tracker.set(next)
}

func (tracker *Tracker) set(next Snapshot) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	tracker.snapshot = next
	for _, watcher := range tracker.watchers {
		offer(watcher, next)
	}
}

// Snapshot returns the current snapshot.
func (tracker *Tracker) Snapshot() Snapshot {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.snapshot
}

/*
Watch returns a latest-value channel of snapshots, starting with the current one.

A slow reader skips intermediate snapshots but always receives the latest. The
channel is closed when ctx ends or [Tracker.Run] returns.
*/
func (tracker *Tracker) Watch(ctx context.Context) <-chan Snapshot {
	channel := make(chan Snapshot, 1)

	tracker.mu.Lock()
	if tracker.done {
		tracker.mu.Unlock()
		close(channel)
		return channel
	}
	id := tracker.nextID
	tracker.nextID++
	tracker.watchers[id] = channel
	channel <- tracker.snapshot
	tracker.mu.Unlock()

	go func() {
		<-ctx.Done()
		tracker.mu.Lock()
		defer tracker.mu.Unlock()
		if watcher, ok := tracker.watchers[id]; ok {
			delete(tracker.watchers, id)
			close(watcher)
		}
	}()

	return channel
}

func (tracker *Tracker) closeWatchers() {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	tracker.done = true
	for id, watcher := range tracker.watchers {
		delete(tracker.watchers, id)
		close(watcher)
	}
}

// offer replaces any unread snapshot with next.
func offer(channel chan Snapshot, next Snapshot) {
	select {
	case <-channel:
	default:
	}
	channel <- next
}
