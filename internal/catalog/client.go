// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/httpclient"
	"github.com/taibuivan/essence/pkg/slice"
)

const (
	listPath   = "/api/fetch"
	searchPath = "/api/search"

	// defaultRetryAfter applies when the upstream throttles without a Retry-After header.
	defaultRetryAfter = 30
)

// RemoteSource reads the catalogue from the public script API.
type RemoteSource struct {
	client *httpclient.Client
}

// NewRemoteSource binds a source to an upstream client.
func NewRemoteSource(client *httpclient.Client) *RemoteSource {
	return &RemoteSource{client: client}
}

// wireScript tolerates both "id" and "_id" from the upstream.
type wireScript struct {
	Script
	MongoID string `json:"_id"`
}

type wireResult struct {
	Result *struct {
		Scripts      []wireScript `json:"scripts"`
		TotalScripts int          `json:"totalScripts"`
	} `json:"result"`
}

func (result wireResult) scripts() []Script {
	if result.Result == nil || len(result.Result.Scripts) == 0 {
		return []Script{}
	}
	return withSlugs(slice.Map(result.Result.Scripts, func(item wireScript) Script {
		script := item.Script
		if script.ID == "" {
			script.ID = item.MongoID
		}
		return script
	}))
}

/*
List fetches one page of the catalogue.

Parameters:
  - context: context.Context
  - params: ListParams (normalized before the call)

Returns:
  - *Page: Scripts and the upstream total (falls back to the page size)
  - error: apperr.RateLimited, apperr.BadGateway
*/
func (source *RemoteSource) List(context context.Context, params ListParams) (*Page, error) {
	params = params.normalized()

	var result wireResult
	response, err := source.client.Get(context, listPath,
		httpclient.WithQuery(map[string]string{
			"page":       strconv.Itoa(params.Page),
			"q":          params.Query,
			"scriptType": string(params.Type),
			"limit":      strconv.Itoa(params.Limit),
		}),
		httpclient.WithResult(&result),
	)
	if err := upstreamError(response, err); err != nil {
		return nil, err
	}

	scripts := result.scripts()
	total := len(scripts)
	if result.Result != nil && result.Result.TotalScripts > 0 {
		total = result.Result.TotalScripts
	}
	return &Page{Scripts: scripts, Total: total}, nil
}

/*
Search runs a full-text query against the catalogue.

Returns:
  - []Script: Matching scripts, never empty
  - error: ErrNoResults, apperr.RateLimited, apperr.BadGateway
*/
func (source *RemoteSource) Search(context context.Context, params SearchParams) ([]Script, error) {
	params = params.normalized()

	var result wireResult
	response, err := source.client.Get(context, searchPath,
		httpclient.WithQuery(map[string]string{
			"q":    params.Query,
			"mode": params.Mode,
			"page": strconv.Itoa(params.Page),
		}),
		httpclient.WithResult(&result),
	)
	if err := upstreamError(response, err); err != nil {
		return nil, err
	}

	scripts := result.scripts()
	if len(scripts) == 0 {
		return nil, ErrNoResults
	}
	return scripts, nil
}

// upstreamError classifies transport failures and non-2xx replies.
func upstreamError(response *resty.Response, err error) error {
	if err != nil {
		return apperr.BadGateway("Script catalogue is unreachable", fmt.Errorf("catalog_request_failed: %w", err))
	}
	if response.StatusCode() == http.StatusTooManyRequests {
		retryAfter, parseErr := strconv.Atoi(response.Header().Get(constants.HeaderRetryAfter))
		if parseErr != nil || retryAfter <= 0 {
			retryAfter = defaultRetryAfter
		}
		return apperr.RateLimited(retryAfter)
	}
	if response.IsError() {
		return apperr.BadGateway("Script catalogue returned an error",
			fmt.Errorf("catalog_upstream_status: %s", response.Status()))
	}
	return nil
}
