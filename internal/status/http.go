// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package status

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/essence/internal/platform/respond"
)

// Handler serves the public status endpoint.
type Handler struct {
	statusService *Board
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Board) *Handler {
	return &Handler{statusService: service}
}

// Routes returns the public /status router.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.overview)
	return router
}

func (handler *Handler) overview(writer http.ResponseWriter, request *http.Request) {
	overview, err := handler.statusService.Overview(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, overview)
}
