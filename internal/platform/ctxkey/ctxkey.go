// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines typed context keys used by middleware and handlers.
//
// # Safety
//
// Keys use an unexported type, so values stored here cannot collide with keys
// from other packages even when the underlying strings are equal.
package ctxkey

type key string

const (
	// KeyRequestID is the context key for the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyPrincipal is the context key for the resolved [identity.Principal].
	KeyPrincipal key = "principal"

	// KeySessionPending marks a request whose session lookup did not finish in time.
	KeySessionPending key = "session_pending"

	// KeySessionToken is the context key for the caller's opaque session token.
	KeySessionToken key = "session_token"

	// KeyLogger is the context key for the per-request [*log/slog.Logger].
	KeyLogger key = "logger"
)
