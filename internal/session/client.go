// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/essence/pkg/uuid"
)

const (
	// expiryCheckTimeout bounds the lookup made when a session reaches its expiry.
	expiryCheckTimeout = 5 * time.Second

	// expiryRetryInterval spaces expiry checks that failed on infrastructure errors.
	expiryRetryInterval = 5 * time.Second
)

// ClientMeta describes the caller a [Client] acts for.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

/*
Client is the [Store] bound to one caller.

It starts from an opaque session token (possibly empty) and, once the token
resolves, follows the session by its stable ID so that a refresh done by
another request does not lose track of it. Changes arrive from three sources:
operations performed through this Client, delivered immediately; events
published by any other process for the same user, delivered through the bus;
and the session's own expiry, which is re-checked when ExpiresAt passes.
Bus echoes of this Client's own operations are dropped.

Every subscriber has its own unbounded queue, so a slow reader delays its
events but never loses them.
*/
type Client struct {
	service *Service
	origin  string
	meta    ClientMeta
	logger  *slog.Logger

	// lifetime bounds the bus subscription.
	lifetime context.Context
	stop     context.CancelFunc

	mu          sync.Mutex
	token       string
	sessionID   string
	userID      string
	busCancel   func()
	expiry      *time.Timer
	subscribers map[int]*subscriber
	nextID      int
	closed      bool
}

// subscriber is one [Client.Subscribe] registration. pending is guarded by the client mutex.
type subscriber struct {
	out     chan Event
	wake    chan struct{}
	done    chan struct{}
	pending []Event
}

// NewClient binds a [Client] to the caller's session token. An empty token is an anonymous caller.
func (service *Service) NewClient(token string, meta ClientMeta) *Client {
	lifetime, stop := context.WithCancel(context.Background())

	return &Client{
		service:     service,
		origin:      uuid.New(),
		meta:        meta,
		logger:      service.logger,
		lifetime:    lifetime,
		stop:        stop,
		token:       token,
		subscribers: make(map[int]*subscriber),
	}
}

// Token returns the opaque token of the session the Client currently holds.
func (client *Client) Token() string {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.token
}

// Current resolves the caller's session, following it by ID once known.
// A bound session that no longer resolves is reported to subscribers as signed out.
func (client *Client) Current(ctx context.Context) (*Session, error) {
	client.mu.Lock()
	token, sessionID, userID := client.token, client.sessionID, client.userID
	client.mu.Unlock()

	var (
		session *Session
		err     error
	)
	switch {
	case sessionID != "":
		session, err = client.service.SessionByID(ctx, sessionID)
	case token != "":
		session, err = client.service.Lookup(ctx, token)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if session == nil {
		if client.release(sessionID) && sessionID != "" {
			client.dispatch(Event{
				Kind:      EventSignedOut,
				UserID:    userID,
				SessionID: sessionID,
				At:        client.service.now(),
			})
		}
		return nil, nil
	}

	client.bind(ctx, session)
	return session, nil
}

// Subscribe registers for change events until ctx ends or the returned function is called.
func (client *Client) Subscribe(ctx context.Context) (<-chan Event, func()) {
	sub := &subscriber{
		out:  make(chan Event),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	client.mu.Lock()
	if client.closed {
		client.mu.Unlock()
		close(sub.out)
		return sub.out, func() {}
	}
	id := client.nextID
	client.nextID++
	client.subscribers[id] = sub
	client.mu.Unlock()

	go client.pump(sub)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			client.mu.Lock()
			defer client.mu.Unlock()
			if _, ok := client.subscribers[id]; ok {
				delete(client.subscribers, id)
				close(sub.done)
			}
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-sub.done:
		}
	}()

	return sub.out, unsubscribe
}

// SignIn authenticates with email and password and makes the new session current.
func (client *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	session, err := client.service.SignIn(withOrigin(ctx, client.origin), SignInInput{
		Email:     email,
		Password:  password,
		UserAgent: client.meta.UserAgent,
		IPAddress: client.meta.IPAddress,
	})
	if err != nil {
		return nil, err
	}

	client.adopt(ctx, session)
	client.dispatch(Event{
		Kind:      EventSignedIn,
		UserID:    session.UserID,
		SessionID: session.ID,
		User:      session.User,
		At:        client.service.now(),
	})
	return session, nil
}

// SignInWithProvider starts an external sign-in and returns the consent URL.
func (client *Client) SignInWithProvider(ctx context.Context, provider string) (string, error) {
	return client.service.StartProviderSignIn(ctx, provider, "")
}

// SignOut ends the current session. Signing out without a session is not an error.
func (client *Client) SignOut(ctx context.Context) error {
	session, err := client.Current(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	if err := client.service.SignOutSession(withOrigin(ctx, client.origin), session.ID); err != nil {
		return err
	}

	client.release("")
	client.dispatch(Event{
		Kind:      EventSignedOut,
		UserID:    session.UserID,
		SessionID: session.ID,
		At:        client.service.now(),
	})
	return nil
}

// UpdateUserAttributes merges attributes into the current account.
func (client *Client) UpdateUserAttributes(ctx context.Context, attributes Attributes) (*User, error) {
	session, err := client.Current(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}

	user, err := client.service.UpdateUserAttributes(withOrigin(ctx, client.origin), session.UserID, attributes)
	if err != nil {
		return nil, err
	}

	client.dispatch(Event{
		Kind:   EventUserUpdated,
		UserID: user.ID,
		User:   user,
		At:     client.service.now(),
	})
	return user, nil
}

// Close ends the bus subscription and closes every subscriber channel.
func (client *Client) Close() {
	client.stop()

	client.mu.Lock()
	defer client.mu.Unlock()

	client.closed = true
	if client.busCancel != nil {
		client.busCancel()
		client.busCancel = nil
	}
	if client.expiry != nil {
		client.expiry.Stop()
		client.expiry = nil
	}
	for id, sub := range client.subscribers {
		delete(client.subscribers, id)
		close(sub.done)
	}
}

// # Binding

// adopt makes a freshly issued session current.
func (client *Client) adopt(ctx context.Context, session *Session) {
	client.mu.Lock()
	client.token = session.RefreshToken
	client.mu.Unlock()

	client.bind(ctx, session)
}

// bind tracks session by ID, arms its expiry check and moves the bus subscription to its user.
func (client *Client) bind(ctx context.Context, session *Session) {
	client.mu.Lock()
	client.sessionID = session.ID
	if !client.closed {
		client.armExpiry(session.ID, session.ExpiresAt)
	}
	if client.userID == session.UserID || client.closed {
		client.mu.Unlock()
		return
	}
	client.userID = session.UserID
	previous := client.busCancel
	client.busCancel = nil
	client.mu.Unlock()

	if previous != nil {
		previous()
	}

	events, cancel, err := client.service.Subscribe(client.lifetime, session.UserID)
	if err != nil {
		client.logger.WarnContext(ctx, "session_bus_subscribe_failed",
			slog.String("user_id", session.UserID),
			slog.String("error", err.Error()),
		)
		return
	}

	client.mu.Lock()
	if client.closed || client.userID != session.UserID {
		client.mu.Unlock()
		cancel()
		return
	}
	client.busCancel = cancel
	client.mu.Unlock()

	go client.forward(events)
}

// release drops the current session, its expiry check and its bus subscription.
// With a non-empty sessionID it only acts while that session is still the
// current one, and reports whether it did.
func (client *Client) release(sessionID string) bool {
	client.mu.Lock()
	if sessionID != "" && client.sessionID != sessionID {
		client.mu.Unlock()
		return false
	}
	cancel := client.busCancel
	client.token, client.sessionID, client.userID = "", "", ""
	client.busCancel = nil
	if client.expiry != nil {
		client.expiry.Stop()
		client.expiry = nil
	}
	client.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

// armExpiry schedules a re-check of sessionID at expiresAt. Callers hold client.mu.
func (client *Client) armExpiry(sessionID string, expiresAt time.Time) {
	client.scheduleCheck(sessionID, expiresAt.Sub(client.service.now()))
}

// scheduleCheck replaces any pending expiry check. Callers hold client.mu.
func (client *Client) scheduleCheck(sessionID string, delay time.Duration) {
	if client.expiry != nil {
		client.expiry.Stop()
	}
	client.expiry = time.AfterFunc(max(delay, 0), func() { client.checkExpiry(sessionID) })
}

// checkExpiry re-resolves the session once its expiry passed. A session
// refreshed elsewhere is re-armed by [Client.Current]; a dead one is reported
// as signed out.
func (client *Client) checkExpiry(sessionID string) {
	client.mu.Lock()
	current := client.sessionID == sessionID && !client.closed
	client.mu.Unlock()
	if !current {
		return
	}

	ctx, cancel := context.WithTimeout(client.lifetime, expiryCheckTimeout)
	defer cancel()

	if _, err := client.Current(ctx); err != nil && client.lifetime.Err() == nil {
		client.logger.Warn("session_expiry_check_failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)

		client.mu.Lock()
		if client.sessionID == sessionID && !client.closed {
			client.scheduleCheck(sessionID, expiryRetryInterval)
		}
		client.mu.Unlock()
	}
}

// forward relays bus events that concern the current session.
func (client *Client) forward(events <-chan Event) {
	for event := range events {
		if event.Origin == client.origin {
			continue
		}

		client.mu.Lock()
		relevant := event.UserID == client.userID &&
			(event.SessionID == "" || event.SessionID == client.sessionID)
		client.mu.Unlock()

		if !relevant {
			continue
		}

		switch event.Kind {
		case EventSignedOut:
			if !client.release(event.SessionID) {
				continue
			}
		case EventTokenRefreshed:
			if !event.ExpiresAt.IsZero() {
				client.mu.Lock()
				if client.sessionID == event.SessionID && !client.closed {
					client.armExpiry(event.SessionID, event.ExpiresAt)
				}
				client.mu.Unlock()
			}
		}
		client.dispatch(event)
	}
}

// dispatch queues an event for every subscriber without blocking.
func (client *Client) dispatch(event Event) {
	client.mu.Lock()
	defer client.mu.Unlock()

	for _, sub := range client.subscribers {
		sub.pending = append(sub.pending, event)
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

// pump delivers a subscriber's queue in order until it unsubscribes.
func (client *Client) pump(sub *subscriber) {
	defer close(sub.out)

	for {
		select {
		case <-sub.wake:
		case <-sub.done:
			return
		}

		client.mu.Lock()
		batch := sub.pending
		sub.pending = nil
		client.mu.Unlock()

		for _, event := range batch {
			select {
			case sub.out <- event:
			case <-sub.done:
				return
			}
		}
	}
}

var _ Store = (*Client)(nil)
