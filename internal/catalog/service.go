// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/redis"
	"github.com/taibuivan/essence/internal/platform/validate"
)

const (
	FieldQuery      = "q"
	FieldScriptType = "scriptType"

	maxQueryLength = 100
)

// Service validates catalogue queries and caches upstream answers.
type Service struct {
	source Source
	cache  goredis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewService wires the catalogue. A nil cache disables caching.
func NewService(source Source, cache goredis.Cmdable, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{source: source, cache: cache, ttl: ttl, logger: logger}
}

/*
List returns one page of the catalogue.

Returns:
  - *Page: Cached or freshly fetched page
  - error: Validation or upstream failures
*/
func (service *Service) List(context context.Context, params ListParams) (*Page, error) {
	params = params.normalized()
	params.Query = strings.TrimSpace(params.Query)

	validator := &validate.Validator{}
	validator.MaxLen(FieldQuery, params.Query, maxQueryLength)
	if params.Type != "" {
		validator.OneOf(FieldScriptType, string(params.Type), string(ScriptTypeFree), string(ScriptTypePaid))
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%slist:%d:%d:%s:%s", constants.RedisPrefixCatalog, params.Page, params.Limit, params.Type, params.Query)

	var page Page
	if service.load(context, key, &page) {
		return &page, nil
	}

	fetched, err := service.source.List(context, params)
	if err != nil {
		return nil, err
	}
	service.store(context, key, fetched)
	return fetched, nil
}

/*
Search runs a catalogue search.

Returns:
  - []Script: Matches
  - error: Validation failures, ErrNoResults or upstream failures
*/
func (service *Service) Search(context context.Context, params SearchParams) ([]Script, error) {
	params = params.normalized()
	params.Query = strings.TrimSpace(params.Query)

	validator := &validate.Validator{}
	validator.Required(FieldQuery, params.Query).MaxLen(FieldQuery, params.Query, maxQueryLength)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%ssearch:%d:%s:%s", constants.RedisPrefixCatalog, params.Page, params.Mode, strings.ToLower(params.Query))

	var scripts []Script
	if service.load(context, key, &scripts) {
		return scripts, nil
	}

	scripts, err := service.source.Search(context, params)
	if err != nil {
		return nil, err
	}
	service.store(context, key, scripts)
	return scripts, nil
}

// # Cache

func (service *Service) load(context context.Context, key string, target any) bool {
	if service.cache == nil {
		return false
	}
	err := redis.GetJSON(context, service.cache, key, target)
	if err != nil && !errors.Is(err, redis.ErrMiss) {
		service.logger.WarnContext(context, "catalog_cache_read_failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return err == nil
}

func (service *Service) store(context context.Context, key string, value any) {
	if service.cache == nil {
		return
	}
	if err := redis.SetJSON(context, service.cache, key, value, service.ttl); err != nil {
		service.logger.WarnContext(context, "catalog_cache_write_failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
