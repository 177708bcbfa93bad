// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package profile

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/middleware"
	requestutil "github.com/taibuivan/essence/internal/platform/request"
	"github.com/taibuivan/essence/internal/platform/respond"
)

// Handler implements the /me endpoints.
type Handler struct {
	profileService *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{profileService: service}
}

// Routes returns a [chi.Router] for the signed-in caller's profile.
//
// # Endpoints
//   - GET    /preferences
//   - PATCH  /preferences
//   - PUT    /theme
//   - GET    /favorites
//   - PUT    /favorites/{scriptID}
//   - DELETE /favorites/{scriptID}
//   - GET    /connections
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/preferences", handler.getPreferences)
	router.Patch("/preferences", handler.patchPreferences)
	router.Put("/theme", handler.putTheme)
	router.Get("/favorites", handler.listFavorites)
	router.Put("/favorites/{scriptID}", handler.addFavorite)
	router.Delete("/favorites/{scriptID}", handler.removeFavorite)
	router.Get("/connections", handler.connections)

	return router
}

func (handler *Handler) getPreferences(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	preferences, err := handler.profileService.Load(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, preferences)
}

/*
PatchPreferences applies a partial update.

PATCH /api/v1/me/preferences

Request:
  - Body: Patch (username, avatar_url, theme, favorite_scripts)

Response:
  - 200: Preferences
  - 400: Validation failure, including any attempt to write role
*/
func (handler *Handler) patchPreferences(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var patch Patch
	if err := requestutil.DecodeJSON(request, &patch); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if patch.Empty() {
		respond.Error(writer, request, apperr.ValidationError("No writable preference in request"))
		return
	}

	preferences, err := handler.profileService.Update(request.Context(), userID, patch)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, preferences)
}

type themeRequest struct {
	Theme Theme `json:"theme"`
}

/*
PutTheme records a theme switch.

PUT /api/v1/me/theme

Description: Persisting is best effort; the response echoes the requested
theme even when the write failed.

Response:
  - 200: {"theme": "..."}
  - 400: Unknown theme
*/
func (handler *Handler) putTheme(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input themeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.Theme != ThemeDark && input.Theme != ThemeLight {
		respond.Error(writer, request, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   "theme",
			Message: "Must be one of: dark, light",
		}))
		return
	}

	theme := handler.profileService.SyncTheme(request.Context(), userID, input.Theme)
	respond.OK(writer, themeRequest{Theme: theme})
}

func (handler *Handler) listFavorites(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	favorites, err := handler.profileService.Favorites(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{constants.FieldItems: favorites})
}

func (handler *Handler) addFavorite(writer http.ResponseWriter, request *http.Request) {
	handler.editFavorite(writer, request, handler.profileService.Favorite)
}

func (handler *Handler) removeFavorite(writer http.ResponseWriter, request *http.Request) {
	handler.editFavorite(writer, request, handler.profileService.Unfavorite)
}

func (handler *Handler) editFavorite(writer http.ResponseWriter, request *http.Request, edit favoriteEdit) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	favorites, err := edit(request.Context(), userID, requestutil.Param(request, "scriptID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{constants.FieldItems: favorites})
}

type favoriteEdit func(ctx context.Context, userID, scriptID string) ([]string, error)

func (handler *Handler) connections(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	connections, err := handler.profileService.Connections(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, connections)
}
