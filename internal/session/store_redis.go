// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/essence/internal/platform/constants"
	redisutil "github.com/taibuivan/essence/internal/platform/redis"
)

// # Session Cache

// RedisCache implements [Cache] using Redis.
type RedisCache struct {
	client redis.Cmdable
}

// NewCache creates a new Redis-backed Cache.
func NewCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

// cachedSession keeps the fields a lookup needs. The user is cached separately
// so that attribute updates invalidate one key instead of every session.
type cachedSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

/*
GetSession returns the cached session for a token hash, without its user.

Returns:
  - *Session: Cached session
  - error: [ErrCacheMiss] or connectivity errors
*/
func (cache *RedisCache) GetSession(context context.Context, tokenHash string) (*Session, error) {
	var cached cachedSession
	err := redisutil.GetJSON(context, cache.client, constants.RedisPrefixSession+tokenHash, &cached)
	if errors.Is(err, redisutil.ErrMiss) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis_session_cache_get_failed: %w", err)
	}

	return &Session{
		ID:        cached.ID,
		UserID:    cached.UserID,
		TokenHash: tokenHash,
		ExpiresAt: cached.ExpiresAt,
		CreatedAt: cached.CreatedAt,
	}, nil
}

// SetSession caches a session under its token hash.
func (cache *RedisCache) SetSession(context context.Context, session *Session, ttl time.Duration) error {
	cached := cachedSession{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	}
	if err := redisutil.SetJSON(context, cache.client, constants.RedisPrefixSession+session.TokenHash, cached, ttl); err != nil {
		return fmt.Errorf("redis_session_cache_set_failed: %w", err)
	}
	return nil
}

// DeleteSessions evicts cached sessions.
func (cache *RedisCache) DeleteSessions(context context.Context, tokenHashes ...string) error {
	if len(tokenHashes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(tokenHashes))
	for _, hash := range tokenHashes {
		keys = append(keys, constants.RedisPrefixSession+hash)
	}

	if err := cache.client.Del(context, keys...).Err(); err != nil {
		return fmt.Errorf("redis_session_cache_delete_failed: %w", err)
	}
	return nil
}

// cachedUser mirrors [User] including the provider identity, which is hidden from JSON responses.
type cachedUser struct {
	User
	ProviderID string `json:"provider_id,omitempty"`
}

// GetUser returns a cached account. The password hash is never cached.
func (cache *RedisCache) GetUser(context context.Context, userID string) (*User, error) {
	var cached cachedUser
	err := redisutil.GetJSON(context, cache.client, constants.RedisPrefixUser+userID, &cached)
	if errors.Is(err, redisutil.ErrMiss) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis_user_cache_get_failed: %w", err)
	}

	user := cached.User
	user.ProviderID = cached.ProviderID
	return &user, nil
}

// SetUser caches an account.
func (cache *RedisCache) SetUser(context context.Context, user *User, ttl time.Duration) error {
	cached := cachedUser{User: *user, ProviderID: user.ProviderID}
	if err := redisutil.SetJSON(context, cache.client, constants.RedisPrefixUser+user.ID, cached, ttl); err != nil {
		return fmt.Errorf("redis_user_cache_set_failed: %w", err)
	}
	return nil
}

// DeleteUser evicts a cached account.
func (cache *RedisCache) DeleteUser(context context.Context, userID string) error {
	if err := cache.client.Del(context, constants.RedisPrefixUser+userID).Err(); err != nil {
		return fmt.Errorf("redis_user_cache_delete_failed: %w", err)
	}
	return nil
}

// # Event Bus

// RedisBus implements [Bus] over Redis pub/sub, one channel per user.
type RedisBus struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBus creates a new Redis-backed event bus.
func NewBus(client *redis.Client, logger *slog.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

// busBuffer is the delivery channel capacity of one bus subscription.
const busBuffer = 32

// Publish delivers an event to the channel of its user.
func (bus *RedisBus) Publish(context context.Context, event Event) error {
	if err := redisutil.PublishJSON(context, bus.client, constants.RedisChannelAuthEvents+event.UserID, event); err != nil {
		return fmt.Errorf("redis_bus_publish_failed: %w", err)
	}
	return nil
}

/*
Subscribe listens on the channel of one user.

Events are never dropped: a slow reader holds back delivery. Undecodable
messages are logged and skipped.

Returns:
  - <-chan Event: Events in publish order, closed on unsubscribe
  - func(): Unsubscribe
  - error: Subscription failures
*/
func (bus *RedisBus) Subscribe(context context.Context, userID string) (<-chan Event, func(), error) {
	events, unsubscribe, err := redisutil.SubscribeJSON(context, bus.client, redisutil.SubscribeOptions[Event]{
		Buffer: busBuffer,
		OnDecodeError: func(err error) {
			bus.logger.Warn("session_event_decode_failed", slog.String("error", err.Error()))
		},
	}, constants.RedisChannelAuthEvents+userID)
	if err != nil {
		return nil, nil, fmt.Errorf("redis_bus_subscribe_failed: %w", err)
	}
	return events, unsubscribe, nil
}

// # OAuth State

// RedisStateStore implements [StateStore] using Redis.
type RedisStateStore struct {
	client redis.Cmdable
}

// NewStateStore creates a new Redis-backed StateStore.
func NewStateStore(client redis.Cmdable) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Save stores a pending sign-in under its state for ttl.
func (store *RedisStateStore) Save(context context.Context, state string, pending PendingSignIn, ttl time.Duration) error {
	if err := redisutil.SetJSON(context, store.client, constants.RedisPrefixOAuthState+state, pending, ttl); err != nil {
		return fmt.Errorf("redis_oauth_state_save_failed: %w", err)
	}
	return nil
}

/*
Consume returns and deletes the pending sign-in in one round trip.

Returns:
  - *PendingSignIn: The saved state
  - error: [ErrInvalidState] when absent or expired
*/
func (store *RedisStateStore) Consume(context context.Context, state string) (*PendingSignIn, error) {
	payload, err := store.client.GetDel(context, constants.RedisPrefixOAuthState+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("redis_oauth_state_consume_failed: %w", err)
	}

	var pending PendingSignIn
	if err := json.Unmarshal(payload, &pending); err != nil {
		return nil, fmt.Errorf("redis_oauth_state_decode_failed: %w", err)
	}
	return &pending, nil
}
