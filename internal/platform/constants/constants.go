// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: JWT issuers, token lifetimes and cookie configuration.
  - Cache Taxonomy: Redis key prefixes and pub/sub channels.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "essence"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// Streaming routes (session watch) clear this deadline per request.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// StartupTimeout bounds the initial Postgres and Redis connections.
	StartupTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// WatchHeartbeatInterval is how often an idle session watch stream sends a comment line.
	WatchHeartbeatInterval = 25 * time.Second

	// SessionJanitorInterval is how often expired sessions are purged.
	SessionJanitorInterval = 15 * time.Minute
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "essence.app"

	// AccessTokenTTL is the lifetime of a signed access token.
	AccessTokenTTL = 15 * time.Minute

	// SessionTTL is how long a session survives without a refresh.
	SessionTTL = 30 * 24 * time.Hour

	// OAuthStateTTL bounds the time between starting and completing a provider sign-in.
	OAuthStateTTL = 10 * time.Minute

	// SessionCookieName is the cookie carrying the opaque session (refresh) token.
	SessionCookieName = "session_token"

	// SessionCookiePath scopes the session cookie to the whole site; page routes read it.
	SessionCookiePath = "/"

	// SessionRetryAfterSeconds is sent with the loading placeholder when a session lookup is slow.
	SessionRetryAfterSeconds = 1
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
	HeaderRetryAfter    = "Retry-After"
)

// # JSON Field Identifiers

const (
	FieldItems   = "items"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixSession    = "auth:session:"
	RedisPrefixUser       = "auth:user:"
	RedisPrefixOAuthState = "auth:oauth_state:"
	RedisPrefixCatalog    = "catalog:"

	// RedisChannelAuthEvents is suffixed with a user ID.
	RedisChannelAuthEvents = "auth:events:"

	// RedisChannelNotifyGlobal carries notices for every connected client.
	RedisChannelNotifyGlobal = "notify:global"

	// RedisChannelNotifyUser is suffixed with a user ID.
	RedisChannelNotifyUser = "notify:user:"
)
