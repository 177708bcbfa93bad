// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/taibuivan/essence/internal/access"
	"github.com/taibuivan/essence/internal/authstate"
	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/ctxutil"
	"github.com/taibuivan/essence/internal/platform/metrics"
	"github.com/taibuivan/essence/internal/platform/middleware"
	"github.com/taibuivan/essence/internal/platform/respond"
	"github.com/taibuivan/essence/internal/session"
)

// # Page Middleware

/*
Pages guards page requests with the requirement declared in table.

Undeclared paths use [access.DefaultRequirement].

  - Allow: the page handler runs.
  - Pending: 503 with Retry-After and a loading placeholder; the page handler never runs.
  - Redirects: 303 See Other to the outcome location.

Must be registered in the router AFTER [middleware.Authenticate].
*/
func Pages(table *access.Table, recorder *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()
			principal := ctxutil.GetPrincipal(ctx)

			decision := access.Evaluate(principal, table.Requirement(request.URL.Path), ctxutil.IsSessionPending(ctx))
			recorder.GuardDecision(decision.String())
			outcome := OutcomeFor(decision, request.URL.RequestURI())

			switch outcome.Kind {
			case Render:
				next.ServeHTTP(writer, request)

			case Loading:
				writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(constants.SessionRetryAfterSeconds))
				respond.JSON(writer, http.StatusServiceUnavailable, respond.SuccessEnvelope{
					Data: map[string]any{"outcome": outcome},
				})

			default:
				ctxutil.GetLogger(ctx).InfoContext(ctx, "guard_redirect",
					slog.String("decision", decision.String()),
					slog.String("target", outcome.Target),
				)
				http.Redirect(writer, request, outcome.Location(), http.StatusSeeOther)
			}
		})
	}
}

// # Session Watch Stream

// Store is a session store bound to one caller that must be closed after use.
type Store interface {
	session.Store
	Close()
}

// StoreFactory opens a [Store] for the session token of a request ("" when anonymous).
type StoreFactory func(token string, meta session.ClientMeta) Store

// WatchHandler streams guard updates for the caller's session as server-sent events.
type WatchHandler struct {
	stores        StoreFactory
	resolver      authstate.Resolver
	table         *access.Table
	metrics       *metrics.Metrics
	lookupTimeout time.Duration
	heartbeat     time.Duration
}

// NewWatchHandler constructs a new [WatchHandler].
func NewWatchHandler(stores StoreFactory, resolver authstate.Resolver, table *access.Table, recorder *metrics.Metrics, lookupTimeout time.Duration) *WatchHandler {
	return &WatchHandler{
		stores:        stores,
		resolver:      resolver,
		table:         table,
		metrics:       recorder,
		lookupTimeout: lookupTimeout,
		heartbeat:     constants.WatchHeartbeatInterval,
	}
}

/*
ServeHTTP handles GET /api/v1/auth/session/watch?path=/dashboard

Description: Opens a tracker over the caller's session cookie and sends an
"update" event for every distinct guard update of the view at path. The
stream ends when the client disconnects.

Response:
  - 200: text/event-stream
  - 400: path is not a local path
*/
func (handler *WatchHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	path := request.URL.Query().Get("path")
	if path == "" {
		path = access.DashboardPath
	}
	if session.SafeRedirectPath(path) == "" {
		respond.Error(writer, request, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   "path",
			Message: "Must be a local path",
		}))
		return
	}

	controller := http.NewResponseController(writer)

	ctx, cancel := context.WithCancel(request.Context())
	defer cancel()
	logger := ctxutil.GetLogger(ctx)

	store := handler.stores(ctxutil.GetSessionToken(ctx), session.ClientMeta{
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	defer store.Close()

	tracker := authstate.NewTracker(store, handler.resolver,
		authstate.WithLogger(logger),
		authstate.WithLookupTimeout(handler.lookupTimeout),
	)
	go func() {
		if err := tracker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.ErrorContext(ctx, "session_tracker_failed", slog.String("error", err.Error()))
		}
	}()

	routePath, _, _ := strings.Cut(path, "?")
	updates := New(handler.table.Requirement(routePath), path, handler.metrics).Watch(ctx, tracker)

	_ = controller.SetWriteDeadline(time.Time{})

	header := writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	writer.WriteHeader(http.StatusOK)
	if err := controller.Flush(); err != nil {
		logger.ErrorContext(ctx, "session_watch_unsupported", slog.String("error", err.Error()))
		return
	}

	heartbeat := time.NewTicker(handler.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(writer, "update", update); err != nil {
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(writer, ": ping\n\n"); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}

		if err := controller.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(writer http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("guard_event_encode_failed: %w", err)
	}
	_, err = fmt.Fprintf(writer, "event: %s\ndata: %s\n\n", name, data)
	return err
}
