// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/essence/internal/access"
	"github.com/taibuivan/essence/internal/admin"
	"github.com/taibuivan/essence/internal/catalog"
	"github.com/taibuivan/essence/internal/guard"
	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/notify"
	"github.com/taibuivan/essence/internal/platform/ctxutil"
	"github.com/taibuivan/essence/internal/platform/metrics"
	requestutil "github.com/taibuivan/essence/internal/platform/request"
	"github.com/taibuivan/essence/internal/platform/respond"
	"github.com/taibuivan/essence/internal/profile"
	"github.com/taibuivan/essence/internal/session"
	"github.com/taibuivan/essence/internal/status"
	"github.com/taibuivan/essence/pkg/slice"
)

// executorService is the service status shown on the execute page.
const executorService = "Executor"

// # Dependencies

// Providers lists the enabled sign-in providers.
type Providers interface {
	Providers() []string
}

// Statuses reads platform health.
type Statuses interface {
	Overview(ctx context.Context) (*status.Overview, error)
	History(ctx context.Context, limit int) ([]status.Change, error)
}

// Profiles reads the caller's preferences.
type Profiles interface {
	Load(ctx context.Context, userID string) (*profile.Preferences, error)
	Theme(ctx context.Context, userID string) profile.Theme
}

// Library lists catalogue scripts.
type Library interface {
	List(ctx context.Context, params catalog.ListParams) (*catalog.Page, error)
}

// Inbox lists the caller's notices.
type Inbox interface {
	Inbox(ctx context.Context, userID string) ([]notify.Notification, error)
}

// Console reads administrator insights.
type Console interface {
	Stats(ctx context.Context) (*admin.Stats, error)
	RecentActivity(ctx context.Context, limit int) ([]admin.Activity, error)
}

// Dependencies groups what the pages read from.
type Dependencies struct {
	Providers Providers
	Statuses  Statuses
	Profiles  Profiles
	Library   Library
	Inbox     Inbox
	Console   Console

	// Callback completes provider sign-in at /auth/callback.
	Callback http.HandlerFunc
}

// # View Model

// View is the JSON body of every page.
type View struct {
	Page      string              `json:"page"`
	Title     string              `json:"title"`
	Principal *identity.Principal `json:"principal,omitempty"`
	Theme     profile.Theme       `json:"theme"`
	Data      any                 `json:"data,omitempty"`
}

// Handler renders pages.
type Handler struct {
	deps Dependencies
}

// NewHandler constructs a new [Handler].
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps}
}

/*
Routes returns the page router guarded by table.

The guard runs before routing, so undeclared paths are gated with the default
requirement before they reach the not-found page.
*/
func (handler *Handler) Routes(table *access.Table, recorder *metrics.Metrics) chi.Router {
	router := chi.NewRouter()
	router.Use(guard.Pages(table, recorder))

	router.Get(PathHome, handler.home)
	router.Get(PathLogin, handler.login)
	router.Get(PathSignup, handler.signup)
	router.Get(PathAuthCallback, handler.deps.Callback)
	router.Get(PathStatus, handler.status)
	router.Get(PathDashboard, handler.dashboard)
	router.Get(PathSettings, handler.settings)
	router.Get(PathProfile, handler.profile)
	router.Get(PathLibrary, handler.library)
	router.Get(PathExecute, handler.execute)
	router.Get(PathAdmin, handler.admin)
	router.Get(PathAdminStatus, handler.adminStatus)
	router.NotFound(handler.notFound)

	return router
}

// render writes a page view for the caller.
func (handler *Handler) render(writer http.ResponseWriter, request *http.Request, page, title string, data any) {
	principal := requestutil.Principal(request)

	theme := profile.DefaultTheme
	if principal != nil {
		theme = handler.deps.Profiles.Theme(request.Context(), principal.ID)
	}

	respond.OK(writer, View{Page: page, Title: title, Principal: principal, Theme: theme, Data: data})
}

// # Public Pages

func (handler *Handler) home(writer http.ResponseWriter, request *http.Request) {
	handler.render(writer, request, "home", "Essence", map[string]any{
		"providers": handler.deps.Providers.Providers(),
	})
}

type loginView struct {
	Providers  []string `json:"providers"`
	Error      string   `json:"error,omitempty"`
	RedirectTo string   `json:"redirect_to,omitempty"`
}

func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	handler.render(writer, request, "login", "Welcome back", loginView{
		Providers:  handler.deps.Providers.Providers(),
		Error:      query.Get("error"),
		RedirectTo: session.SafeRedirectPath(query.Get("redirect_to")),
	})
}

func (handler *Handler) signup(writer http.ResponseWriter, request *http.Request) {
	handler.render(writer, request, "signup", "Create an account", loginView{
		Providers: handler.deps.Providers.Providers(),
	})
}

func (handler *Handler) status(writer http.ResponseWriter, request *http.Request) {
	overview, err := handler.deps.Statuses.Overview(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	handler.render(writer, request, "status", "System Status", overview)
}

func (handler *Handler) notFound(writer http.ResponseWriter, request *http.Request) {
	respond.JSON(writer, http.StatusNotFound, respond.SuccessEnvelope{Data: View{
		Page:      "not_found",
		Title:     "Page not found",
		Principal: requestutil.Principal(request),
		Theme:     profile.DefaultTheme,
	}})
}

// # Member Pages

type dashboardView struct {
	Username      string                `json:"username"`
	Notifications []notify.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

func (handler *Handler) dashboard(writer http.ResponseWriter, request *http.Request) {
	principal := requestutil.Principal(request)
	ctx := request.Context()

	view := dashboardView{Username: principal.DisplayName, Notifications: []notify.Notification{}}

	notifications, err := handler.deps.Inbox.Inbox(ctx, principal.ID)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "dashboard_inbox_failed", slog.String("error", err.Error()))
	} else {
		view.Notifications = notifications
		view.Unread = len(slice.Filter(notifications, func(n notify.Notification) bool { return !n.Read }))
	}

	handler.render(writer, request, "dashboard", "Dashboard", view)
}

func (handler *Handler) settings(writer http.ResponseWriter, request *http.Request) {
	handler.preferencesPage(writer, request, "settings", "Settings")
}

func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	handler.preferencesPage(writer, request, "profile", "Profile")
}

func (handler *Handler) preferencesPage(writer http.ResponseWriter, request *http.Request, page, title string) {
	principal := requestutil.Principal(request)

	preferences, err := handler.deps.Profiles.Load(request.Context(), principal.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	handler.render(writer, request, page, title, preferences)
}

type libraryView struct {
	Favorites []string         `json:"favorite_scripts"`
	Scripts   []catalog.Script `json:"scripts"`
	Total     int              `json:"total"`
	Error     string           `json:"error,omitempty"`
}

// library renders favourites with the first catalogue page. Catalogue errors
// are shown in the view.
func (handler *Handler) library(writer http.ResponseWriter, request *http.Request) {
	principal := requestutil.Principal(request)
	ctx := request.Context()

	preferences, err := handler.deps.Profiles.Load(ctx, principal.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	view := libraryView{Favorites: preferences.Favorites, Scripts: []catalog.Script{}}
	page, err := handler.deps.Library.List(ctx, catalog.ListParams{})
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "library_catalog_failed", slog.String("error", err.Error()))
		view.Error = respond.PublicMessage(err)
	} else {
		view.Scripts, view.Total = page.Scripts, page.Total
	}

	handler.render(writer, request, "library", "Library", view)
}

func (handler *Handler) execute(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	var executor *status.Service
	if overview, err := handler.deps.Statuses.Overview(ctx); err == nil {
		for i := range overview.Services {
			if overview.Services[i].Name == executorService {
				executor = &overview.Services[i]
				break
			}
		}
	} else {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "execute_status_failed", slog.String("error", err.Error()))
	}

	handler.render(writer, request, "execute", "Essence Script Executor", map[string]any{
		"executor": executor,
	})
}

// # Admin Pages

type adminView struct {
	Stats    *admin.Stats     `json:"stats"`
	Activity []admin.Activity `json:"activity"`
}

func (handler *Handler) admin(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	stats, err := handler.deps.Console.Stats(ctx)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	activity, err := handler.deps.Console.RecentActivity(ctx, admin.DefaultActivityLimit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.render(writer, request, "admin", "Admin Panel", adminView{Stats: stats, Activity: activity})
}

type adminStatusView struct {
	*status.Overview
	History []status.Change `json:"history"`
}

func (handler *Handler) adminStatus(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	overview, err := handler.deps.Statuses.Overview(ctx)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	history, err := handler.deps.Statuses.History(ctx, status.DefaultHistoryLimit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.render(writer, request, "admin_status", "Status Management", adminStatusView{Overview: overview, History: history})
}
