// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/ctxutil"
	"github.com/taibuivan/essence/internal/platform/middleware"
	requestutil "github.com/taibuivan/essence/internal/platform/request"
	"github.com/taibuivan/essence/internal/platform/respond"
)

// Handler implements the caller's notification inbox.
type Handler struct {
	notifyService *Service
	heartbeat     time.Duration
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{notifyService: service, heartbeat: constants.WatchHeartbeatInterval}
}

// Routes returns the /me/notifications router.
//
// # Endpoints
//   - GET    /
//   - GET    /stream
//   - POST   /read
//   - POST   /{id}/read
//   - DELETE /{id}
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.inbox)
	router.Get("/stream", handler.stream)
	router.Post("/read", handler.markAllRead)
	router.Post("/{id}/read", handler.markRead)
	router.Delete("/{id}", handler.dismiss)

	return router
}

func (handler *Handler) inbox(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	notifications, err := handler.notifyService.Inbox(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, notifications)
}

func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.notifyService.MarkRead(request.Context(), userID, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) markAllRead(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.notifyService.MarkAllRead(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int64{"updated": updated})
}

func (handler *Handler) dismiss(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.notifyService.Dismiss(request.Context(), userID, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

/*
stream handles GET /api/v1/me/notifications/stream

Description: Sends a "notification" event for every live notice addressed to
the caller or to everyone, until the client disconnects.
*/
func (handler *Handler) stream(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	notifications, unsubscribe, err := handler.notifyService.Subscribe(ctx, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer unsubscribe()

	controller := http.NewResponseController(writer)
	_ = controller.SetWriteDeadline(time.Time{})

	header := writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	writer.WriteHeader(http.StatusOK)
	if err := controller.Flush(); err != nil {
		logger.ErrorContext(ctx, "notification_stream_unsupported", slog.String("error", err.Error()))
		return
	}

	heartbeat := time.NewTicker(handler.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case notification, ok := <-notifications:
			if !ok {
				return
			}
			payload, err := json.Marshal(notification)
			if err != nil {
				logger.ErrorContext(ctx, "notification_encode_failed", slog.String("error", err.Error()))
				continue
			}
			if _, err := fmt.Fprintf(writer, "event: notification\ndata: %s\n\n", payload); err != nil {
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
