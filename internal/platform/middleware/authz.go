// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/essence/internal/access"
	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/ctxutil"
	"github.com/taibuivan/essence/internal/platform/respond"
	"github.com/taibuivan/essence/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify bearer tokens in middleware.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// SessionLookup resolves a session to the current raw account record, either
// by opaque cookie token or by the session ID carried in an access token.
// An unknown, expired or revoked session yields (nil, nil).
type SessionLookup interface {
	LookupRecord(ctx context.Context, token string) (*identity.Record, error)
	RecordBySession(ctx context.Context, sessionID string) (*identity.Record, error)
}

// PrincipalResolver maps a raw record to a principal.
type PrincipalResolver interface {
	Resolve(record *identity.Record) *identity.Principal
}

// Authenticate resolves the caller's principal and stores it in the request context.
//
// # Flow
//  1. 'Authorization: Bearer <jwt>' is verified with [TokenVerifier]; a bad token is a 401.
//     A valid token only names its session: the principal comes from the live
//     session record, so a revoked session or a demoted account loses access at once.
//  2. Otherwise the session cookie is looked up through [SessionLookup].
//  3. Either lookup is bounded by timeout; running past it marks the request as pending.
//  4. Any other lookup failure is logged as session_fetch_failed and the request proceeds anonymously.
//
// Authenticate never rejects a cookie request; gating is left to [RequireAuth],
// [RequireAdmin] and the page guard.
func Authenticate(lookup SessionLookup, verifier TokenVerifier, resolver PrincipalResolver, timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			// ── 1. Bearer Token ───────────────────────────────────────────────
			if authHeader := request.Header.Get(constants.HeaderAuthorization); authHeader != "" {
				scheme, token, found := strings.Cut(authHeader, " ")
				if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
					respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
					return
				}

				claims, err := verifier.VerifyToken(token)
				if err != nil {
					respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
					return
				}

				ctx = resolveSession(ctx, resolver, timeout, func(lookupCtx context.Context) (*identity.Record, error) {
					if claims.SessionID == "" {
						return nil, nil
					}
					return lookup.RecordBySession(lookupCtx, claims.SessionID)
				})
				next.ServeHTTP(writer, request.WithContext(ctx))
				return
			}

			// ── 2. Session Cookie ─────────────────────────────────────────────
			cookie, err := request.Cookie(constants.SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(writer, request)
				return
			}
			ctx = ctxutil.WithSessionToken(ctx, cookie.Value)

			ctx = resolveSession(ctx, resolver, timeout, func(lookupCtx context.Context) (*identity.Record, error) {
				return lookup.LookupRecord(lookupCtx, cookie.Value)
			})
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// resolveSession runs fetch under timeout and records the outcome in ctx:
// a principal, the pending flag, or nothing.
func resolveSession(ctx context.Context, resolver PrincipalResolver, timeout time.Duration, fetch func(context.Context) (*identity.Record, error)) context.Context {
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	record, err := fetch(lookupCtx)
	cancel()

	switch {
	case err == nil:
		return withPrincipal(ctx, resolver.Resolve(record))

	case timedOut(err, lookupCtx) && ctx.Err() == nil:
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_lookup_pending",
			slog.Duration("timeout", timeout),
		)
		return ctxutil.WithSessionPending(ctx)

	default:
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "session_fetch_failed",
			slog.String("error", err.Error()),
		)
		return ctx
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return gate(access.Authenticated)(next)
}

// RequireAdmin blocks requests whose principal is not elevated. It implies [RequireAuth].
func RequireAdmin(next http.Handler) http.Handler {
	return gate(access.AdminOnly)(next)
}

// gate maps the authorization decision onto API status codes:
// pending is 503 with Retry-After, login is 401, dashboard is 403.
func gate(requirement access.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()
			decision := access.Evaluate(ctxutil.GetPrincipal(ctx), requirement, ctxutil.IsSessionPending(ctx))

			switch decision {
			case access.Allow:
				next.ServeHTTP(writer, request)
			case access.Pending:
				respond.Error(writer, request,
					apperr.ServiceUnavailable("Session is still loading").WithRetryAfter(constants.SessionRetryAfterSeconds))
			case access.RedirectToLogin:
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			default:
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
			}
		})
	}
}

// timedOut reports whether a lookup failed because its own deadline passed.
func timedOut(err error, lookupCtx context.Context) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded)
}

// withPrincipal stores the principal and fills the logger's identity slot.
func withPrincipal(ctx context.Context, principal *identity.Principal) context.Context {
	if principal == nil {
		return ctx
	}
	identitySlot(ctx).set(principal)
	return ctxutil.WithPrincipal(ctx, principal)
}

// # Identity Slot

type slotKey struct{}

// principalSlot lets [StructuredLogger], which runs before [Authenticate],
// observe the principal resolved further down the chain.
type principalSlot struct {
	principal *identity.Principal
}

func withIdentitySlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, slotKey{}, &principalSlot{})
}

func identitySlot(ctx context.Context) *principalSlot {
	slot, _ := ctx.Value(slotKey{}).(*principalSlot)
	return slot
}

func (slot *principalSlot) set(principal *identity.Principal) {
	if slot != nil {
		slot.principal = principal
	}
}

func (slot *principalSlot) get() *identity.Principal {
	if slot == nil {
		return nil
	}
	return slot.principal
}
