// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis holds the shared Redis client and the JSON helpers built on it.

Essence keeps everything short-lived here:

  - Session and account lookups cached in front of PostgreSQL.
  - Pending provider sign-ins keyed by their OAuth state.
  - Per-user session events and notification channels (pub/sub).
  - Remote catalogue pages.

Nothing stored in Redis is authoritative. Losing it costs a lookup, never a session.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
	pingTimeout = 2 * time.Second

	// poolSize leaves headroom for one pub/sub connection per open event stream.
	poolSize     = 32
	minIdleConns = 2
)

// NewClient parses redisURL, connects and pings.
//
// # Parameters
//   - context: Bounds the initial ping.
//   - redisURL: redis:// or rediss:// URL.
//   - logger: Receives the connection event.
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	if options.PoolSize == 0 {
		options.PoolSize = poolSize
	}
	options.MinIdleConns = minIdleConns
	options.DialTimeout = dialTimeout
	options.ReadTimeout = ioTimeout
	options.WriteTimeout = ioTimeout

	client := redis.NewClient(options)
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
		slog.Int("pool_size", options.PoolSize),
	)
	return client, nil
}

// Ping verifies that the Redis client answers within pingTimeout.
func Ping(context stdctx.Context, client redis.UniversalClient) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}
