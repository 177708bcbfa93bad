// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/essence/internal/notify"
	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/middleware"
	requestutil "github.com/taibuivan/essence/internal/platform/request"
	"github.com/taibuivan/essence/internal/platform/respond"
	"github.com/taibuivan/essence/internal/session"
	"github.com/taibuivan/essence/internal/status"
	"github.com/taibuivan/essence/pkg/pagination"
)

// Handler implements the /admin endpoints.
type Handler struct {
	adminService *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{adminService: service}
}

// Routes returns the admin router. Every endpoint requires an elevated principal.
//
// # Endpoints
//   - GET   /users
//   - PATCH /users/{id}/role
//   - PATCH /users/{id}/status
//   - GET   /keys
//   - POST  /keys
//   - GET   /resellers
//   - POST  /resellers/{id}/keys
//   - PUT   /status
//   - GET   /status/history
//   - GET   /services
//   - PUT   /services/{id}
//   - POST  /notifications
//   - GET   /stats
//   - GET   /activity
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAdmin)

	router.Get("/users", handler.listUsers)
	router.Patch("/users/{id}/role", handler.setRole)
	router.Patch("/users/{id}/status", handler.setStatus)

	router.Get("/keys", handler.listKeys)
	router.Post("/keys", handler.generateKeys)

	router.Get("/resellers", handler.listResellers)
	router.Post("/resellers/{id}/keys", handler.allocateKeys)

	router.Put("/status", handler.updateSystemStatus)
	router.Get("/status/history", handler.statusHistory)
	router.Get("/services", handler.listServices)
	router.Put("/services/{id}", handler.updateService)

	router.Post("/notifications", handler.sendNotification)

	router.Get("/stats", handler.stats)
	router.Get("/activity", handler.activity)

	return router
}

// actor identifies the calling administrator.
func actor(request *http.Request) (Actor, error) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: userID, IPAddress: middleware.RealIP(request)}, nil
}

// # Users

func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)
	filter := UserFilter{
		Search: request.URL.Query().Get("q"),
		Status: session.Status(request.URL.Query().Get("status")),
	}

	users, total, err := handler.adminService.ListUsers(request.Context(), filter, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, users, pagination.NewMeta(page.Page, page.Limit, total))
}

type roleRequest struct {
	Role string `json:"role"`
}

/*
setRole changes a user's role.

PATCH /api/v1/admin/users/{id}/role

Response:
  - 200: session.User
  - 400: Unknown role
  - 403: Changing your own role
  - 404: Unknown user
*/
func (handler *Handler) setRole(writer http.ResponseWriter, request *http.Request) {
	caller, err := actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input roleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.adminService.SetUserRole(request.Context(), caller, requestutil.Param(request, "id"), input.Role)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, user)
}

type statusRequest struct {
	Status session.Status `json:"status"`
}

func (handler *Handler) setStatus(writer http.ResponseWriter, request *http.Request) {
	caller, err := actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input statusRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.adminService.SetUserStatus(request.Context(), caller, requestutil.Param(request, "id"), input.Status)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, user)
}

// # License Keys

func (handler *Handler) listKeys(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	keys, total, err := handler.adminService.ListKeys(request.Context(), KeyStatus(request.URL.Query().Get("status")), page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, keys, pagination.NewMeta(page.Page, page.Limit, total))
}

type generateKeysRequest struct {
	Quantity int         `json:"quantity"`
	Duration KeyDuration `json:"duration"`
}

/*
generateKeys creates a batch of license keys.

POST /api/v1/admin/keys

Request:
  - Body: {"quantity": 1..100, "duration": "1d"|"7d"|"30d"|"lifetime"}

Response:
  - 201: []LicenseKey
  - 400: Validation failure
*/
func (handler *Handler) generateKeys(writer http.ResponseWriter, request *http.Request) {
	caller, err := actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input generateKeysRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	keys, err := handler.adminService.GenerateKeys(request.Context(), caller, input.Quantity, input.Duration)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, keys)
}

// # Resellers

func (handler *Handler) listResellers(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	resellers, total, err := handler.adminService.ListResellers(request.Context(), request.URL.Query().Get("q"), page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, resellers, pagination.NewMeta(page.Page, page.Limit, total))
}

/*
allocateKeys generates a batch of keys assigned to one reseller.

POST /api/v1/admin/resellers/{id}/keys

Request:
  - Body: {"quantity": 1..100, "duration": "1d"|"7d"|"30d"|"lifetime"}

Response:
  - 201: []LicenseKey
  - 400: Validation failure
  - 404: Unknown reseller
  - 409: Reseller not active
*/
func (handler *Handler) allocateKeys(writer http.ResponseWriter, request *http.Request) {
	caller, err := actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input generateKeysRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	keys, err := handler.adminService.AllocateResellerKeys(request.Context(), caller,
		requestutil.Param(request, "id"), input.Quantity, input.Duration)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, keys)
}

// # Platform Status

type levelRequest struct {
	Status  status.Level `json:"status"`
	Message string       `json:"message"`
}

func (handler *Handler) updateSystemStatus(writer http.ResponseWriter, request *http.Request) {
	caller, err := actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input levelRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	system, err := handler.adminService.UpdateSystemStatus(request.Context(), caller, input.Status, input.Message)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, system)
}

func (handler *Handler) statusHistory(writer http.ResponseWriter, request *http.Request) {
	limit := requestutil.QueryInt(request, "limit", status.DefaultHistoryLimit)

	changes, err := handler.adminService.StatusHistory(request.Context(), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, changes)
}

func (handler *Handler) listServices(writer http.ResponseWriter, request *http.Request) {
	services, err := handler.adminService.Services(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, services)
}

func (handler *Handler) updateService(writer http.ResponseWriter, request *http.Request) {
	caller, err := actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := strconv.Atoi(requestutil.Param(request, "id"))
	if err != nil || id < 1 {
		respond.Error(writer, request, apperr.NotFound("Service"))
		return
	}

	var input levelRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	item, err := handler.adminService.UpdateServiceStatus(request.Context(), caller, id, input.Status, input.Message)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, item)
}

// # Notifications

func (handler *Handler) sendNotification(writer http.ResponseWriter, request *http.Request) {
	caller, err := actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input notify.Input
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	notification, err := handler.adminService.SendNotification(request.Context(), caller, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, notification)
}

// # Insights

func (handler *Handler) stats(writer http.ResponseWriter, request *http.Request) {
	stats, err := handler.adminService.Stats(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, stats)
}

func (handler *Handler) activity(writer http.ResponseWriter, request *http.Request) {
	limit := requestutil.QueryInt(request, "limit", DefaultActivityLimit)

	entries, err := handler.adminService.RecentActivity(request.Context(), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, entries)
}
