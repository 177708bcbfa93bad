// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/essence/internal/platform/middleware"
	requestutil "github.com/taibuivan/essence/internal/platform/request"
	"github.com/taibuivan/essence/internal/platform/respond"
	"github.com/taibuivan/essence/pkg/pagination"
)

// Handler exposes the script library.
type Handler struct {
	catalogService *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{catalogService: service}
}

// Routes returns the /scripts router. Both endpoints require a session.
//
// # Endpoints
//   - GET /        ?page&limit&q&scriptType
//   - GET /search  ?q&mode&page
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Get("/search", handler.search)

	return router
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	params := ListParams{
		Query: query.Get(FieldQuery),
		Type:  ScriptType(query.Get(FieldScriptType)),
		Page:  requestutil.QueryInt(request, "page", DefaultPage),
		Limit: requestutil.QueryInt(request, "limit", DefaultLimit),
	}.normalized()

	page, err := handler.catalogService.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, page.Scripts, pagination.NewMeta(params.Page, params.Limit, page.Total))
}

func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	params := SearchParams{
		Query: query.Get(FieldQuery),
		Mode:  query.Get("mode"),
		Page:  requestutil.QueryInt(request, "page", DefaultPage),
	}

	scripts, err := handler.catalogService.Search(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, scripts)
}
