// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis

import (
	stdctx "context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by [GetJSON] when the key does not exist.
var ErrMiss = errors.New("redis: cache miss")

// SetJSON stores value under key as JSON with the given TTL.
func SetJSON(context stdctx.Context, client redis.Cmdable, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", key, err)
	}
	return client.Set(context, key, payload, ttl).Err()
}

// GetJSON loads key into target. A missing key yields [ErrMiss].
func GetJSON(context stdctx.Context, client redis.Cmdable, key string, target any) error {
	payload, err := client.Get(context, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("redis: decode %s: %w", key, err)
	}
	return nil
}
