// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/sec"
	"github.com/taibuivan/essence/internal/session"
)

// # In-Memory Repositories

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*session.User

	// findErr makes FindByID fail like an unreachable database.
	findErr error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[string]*session.User{}}
}

func (repository *memoryUsers) copyOf(user *session.User) *session.User {
	out := *user
	out.Metadata = maps.Clone(user.Metadata)
	return &out
}

func (repository *memoryUsers) FindByID(_ context.Context, id string) (*session.User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if repository.findErr != nil {
		return nil, repository.findErr
	}
	if user, ok := repository.users[id]; ok {
		return repository.copyOf(user), nil
	}
	return nil, apperr.NotFound("User")
}

func (repository *memoryUsers) FindByEmail(_ context.Context, email string) (*session.User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	for _, user := range repository.users {
		if email != "" && user.Email == email {
			return repository.copyOf(user), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository *memoryUsers) FindByProvider(_ context.Context, provider, providerID string) (*session.User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	for _, user := range repository.users {
		if user.Provider == provider && user.ProviderID == providerID {
			return repository.copyOf(user), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository *memoryUsers) Create(_ context.Context, user *session.User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.users[user.ID] = repository.copyOf(user)
	return nil
}

func (repository *memoryUsers) UpdateMetadata(_ context.Context, userID string, metadata map[string]any) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	user, ok := repository.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.Metadata = maps.Clone(metadata)
	return nil
}

func (repository *memoryUsers) UpdateStatus(_ context.Context, userID string, status session.Status) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	user, ok := repository.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.Status = status
	return nil
}

func (repository *memoryUsers) TouchSignIn(_ context.Context, userID string, at time.Time) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if user, ok := repository.users[userID]; ok {
		user.LastSignInAt = &at
	}
	return nil
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]*session.Session

	// delay simulates a slow database for lookup timeouts.
	delay time.Duration
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]*session.Session{}}
}

func (repository *memorySessions) wait(ctx context.Context) error {
	if repository.delay == 0 {
		return nil
	}
	select {
	case <-time.After(repository.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (repository *memorySessions) Create(_ context.Context, s *session.Session) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	stored := *s
	stored.User = nil
	stored.RefreshToken = ""
	repository.sessions[s.ID] = &stored
	return nil
}

func (repository *memorySessions) FindByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	if err := repository.wait(ctx); err != nil {
		return nil, err
	}
	repository.mu.Lock()
	defer repository.mu.Unlock()
	for _, s := range repository.sessions {
		if s.TokenHash == tokenHash {
			out := *s
			return &out, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (repository *memorySessions) FindByID(ctx context.Context, id string) (*session.Session, error) {
	if err := repository.wait(ctx); err != nil {
		return nil, err
	}
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if s, ok := repository.sessions[id]; ok {
		out := *s
		return &out, nil
	}
	return nil, apperr.NotFound("Session")
}

func (repository *memorySessions) Rotate(_ context.Context, sessionID, tokenHash string, expiresAt time.Time) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	s, ok := repository.sessions[sessionID]
	if !ok {
		return apperr.NotFound("Session")
	}
	s.TokenHash = tokenHash
	s.ExpiresAt = expiresAt
	return nil
}

func (repository *memorySessions) Revoke(_ context.Context, sessionID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	delete(repository.sessions, sessionID)
	return nil
}

func (repository *memorySessions) RevokeAll(_ context.Context, userID string) ([]string, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	var hashes []string
	for id, s := range repository.sessions {
		if s.UserID == userID {
			hashes = append(hashes, s.TokenHash)
			delete(repository.sessions, id)
		}
	}
	return hashes, nil
}

func (repository *memorySessions) DeleteExpired(_ context.Context) ([]session.PurgedSession, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	var purged []session.PurgedSession
	for id, s := range repository.sessions {
		if s.Expired(time.Now()) {
			delete(repository.sessions, id)
			purged = append(purged, session.PurgedSession{ID: s.ID, UserID: s.UserID})
		}
	}
	return purged, nil
}

func (repository *memorySessions) expire(sessionID string) {
	repository.expireIn(sessionID, -time.Minute)
}

// expireIn moves the expiry of a stored session to now+d.
func (repository *memorySessions) expireIn(sessionID string, d time.Duration) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.sessions[sessionID].ExpiresAt = time.Now().Add(d)
}

// # In-Memory Cache, Bus & State

// nopCache always misses.
type nopCache struct{}

func (nopCache) GetSession(context.Context, string) (*session.Session, error) {
	return nil, session.ErrCacheMiss
}
func (nopCache) SetSession(context.Context, *session.Session, time.Duration) error { return nil }
func (nopCache) DeleteSessions(context.Context, ...string) error                  { return nil }
func (nopCache) GetUser(context.Context, string) (*session.User, error) {
	return nil, session.ErrCacheMiss
}
func (nopCache) SetUser(context.Context, *session.User, time.Duration) error { return nil }
func (nopCache) DeleteUser(context.Context, string) error                    { return nil }

type memoryBus struct {
	mu          sync.Mutex
	subscribers map[string]map[int]chan session.Event
	next        int
	published   []session.Event
}

func newMemoryBus() *memoryBus {
	return &memoryBus{subscribers: map[string]map[int]chan session.Event{}}
}

func (bus *memoryBus) Publish(_ context.Context, event session.Event) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.published = append(bus.published, event)
	for _, channel := range bus.subscribers[event.UserID] {
		channel <- event
	}
	return nil
}

func (bus *memoryBus) Subscribe(_ context.Context, userID string) (<-chan session.Event, func(), error) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	channel := make(chan session.Event, 64)
	id := bus.next
	bus.next++
	if bus.subscribers[userID] == nil {
		bus.subscribers[userID] = map[int]chan session.Event{}
	}
	bus.subscribers[userID][id] = channel

	var once sync.Once
	return channel, func() {
		once.Do(func() {
			bus.mu.Lock()
			defer bus.mu.Unlock()
			delete(bus.subscribers[userID], id)
			close(channel)
		})
	}, nil
}

func (bus *memoryBus) kinds() []session.EventKind {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	kinds := make([]session.EventKind, 0, len(bus.published))
	for _, event := range bus.published {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

type memoryStates struct {
	mu     sync.Mutex
	states map[string]session.PendingSignIn
}

func (store *memoryStates) Save(_ context.Context, state string, pending session.PendingSignIn, _ time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.states[state] = pending
	return nil
}

func (store *memoryStates) Consume(_ context.Context, state string) (*session.PendingSignIn, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	pending, ok := store.states[state]
	if !ok {
		return nil, session.ErrInvalidState
	}
	delete(store.states, state)
	return &pending, nil
}

// # Tokens & Providers

type fakeTokens struct{}

func (fakeTokens) GenerateAccessToken(subject sec.Subject, _ time.Duration) (string, error) {
	return fmt.Sprintf("access:%s:%s", subject.UserID, subject.SessionID), nil
}

type fakeProvider struct {
	identity *session.ExternalIdentity
}

func (provider *fakeProvider) Name() string { return "discord" }

func (provider *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (provider *fakeProvider) Exchange(_ context.Context, code string) (*session.ExternalIdentity, error) {
	if code != "good-code" {
		return nil, apperr.BadGateway("Discord sign-in failed", nil)
	}
	out := *provider.identity
	return &out, nil
}

// # Fixture

type fixture struct {
	service  *session.Service
	users    *memoryUsers
	sessions *memorySessions
	bus      *memoryBus
	states   *memoryStates
	provider *fakeProvider
}

func newFixture() *fixture {
	f := &fixture{
		users:    newMemoryUsers(),
		sessions: newMemorySessions(),
		bus:      newMemoryBus(),
		states:   &memoryStates{states: map[string]session.PendingSignIn{}},
		provider: &fakeProvider{identity: &session.ExternalIdentity{
			ProviderID: "1234",
			Email:      "disc@user.gg",
			Username:   "Disc",
			AvatarURL:  "https://cdn.test/a.png",
		}},
	}

	f.service = session.NewService(session.Dependencies{
		Users:     f.users,
		Sessions:  f.sessions,
		Cache:     nopCache{},
		Bus:       f.bus,
		States:    f.states,
		Tokens:    fakeTokens{},
		Providers: []session.Provider{f.provider},
	})
	return f
}

func (f *fixture) signUp(email, username string) *session.Session {
	s, err := f.service.SignUp(context.Background(), session.SignUpInput{
		Email:    email,
		Password: "secret-pass",
		Username: username,
	})
	if err != nil {
		panic(err)
	}
	return s
}
