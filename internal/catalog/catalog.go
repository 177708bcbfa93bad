// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalog serves the script library shown to signed-in users.

Listings and searches are proxied to the remote script catalogue and kept in
Redis for a short while, so a burst of page loads costs one upstream call.
*/
package catalog

import (
	"context"
	"net/http"
	"time"

	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/pkg/slug"
)

// # Domain Types

// ScriptType distinguishes free scripts from paid ones.
type ScriptType string

const (
	ScriptTypeFree ScriptType = "free"
	ScriptTypePaid ScriptType = "paid"
)

// Game is the experience a script targets.
type Game struct {
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Script is one catalogue entry.
type Script struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"script,omitempty"`
	Game        *Game      `json:"game,omitempty"`
	Verified    bool       `json:"verified"`
	Patched     bool       `json:"isPatched"`
	Type        ScriptType `json:"scriptType"`
	KeyRequired bool       `json:"key"`
	KeyLink     string     `json:"keyLink,omitempty"`
	Views       int        `json:"views"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Page is one slice of a listing.
type Page struct {
	Scripts []Script `json:"scripts"`
	Total   int      `json:"total"`
}

// # Queries

const (
	DefaultPage  = 1
	DefaultLimit = 9
	MaxLimit     = 50
)

// ListParams filters a listing. Zero values fall back to the defaults.
type ListParams struct {
	Query string
	Type  ScriptType
	Page  int
	Limit int
}

func (params ListParams) normalized() ListParams {
	if params.Page < 1 {
		params.Page = DefaultPage
	}
	if params.Limit < 1 {
		params.Limit = DefaultLimit
	}
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}
	return params
}

// SearchParams describes a full-text search.
type SearchParams struct {
	Query string
	Mode  string
	Page  int
}

func (params SearchParams) normalized() SearchParams {
	if params.Page < 1 {
		params.Page = DefaultPage
	}
	return params
}

// ErrNoResults is returned when a search matches nothing.
var ErrNoResults = &apperr.AppError{
	Code:       apperr.CodeNotFound,
	Message:    "No search results found.",
	HTTPStatus: http.StatusNotFound,
}

// Source is the upstream the catalogue is read from.
type Source interface {
	List(ctx context.Context, params ListParams) (*Page, error)
	Search(ctx context.Context, params SearchParams) ([]Script, error)
}

// withSlugs fills missing slugs from titles.
func withSlugs(scripts []Script) []Script {
	for i := range scripts {
		if scripts[i].Slug == "" {
			scripts[i].Slug = slug.From(scripts[i].Title)
		}
	}
	return scripts
}
