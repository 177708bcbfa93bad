// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package httpclient wraps resty for outbound calls to third-party APIs.

Every request runs inside an OpenTelemetry client span, carries the W3C trace
headers of the caller, and is counted per upstream in the Prometheus registry.
With no tracer provider installed the global provider is a no-op, so callers
never need to check whether tracing is configured.
*/
package httpclient

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/taibuivan/essence/internal/platform/metrics"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultRetry   = 2

	tracerName = "github.com/taibuivan/essence/internal/platform/httpclient"
)

// Client is a resty client bound to one upstream.
type Client struct {
	resty    *resty.Client
	upstream string
	metrics  *metrics.Metrics
}

// New creates a client for baseURL. upstream names the service in spans and metrics.
func New(baseURL, upstream string, recorder *metrics.Metrics) *Client {
	restyClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(DefaultTimeout).
		SetRetryCount(DefaultRetry).
		SetHeader("Accept", "application/json")

	return &Client{resty: restyClient, upstream: upstream, metrics: recorder}
}

// HTTPClient exposes the underlying [*http.Client], e.g. for golang.org/x/oauth2.
func (client *Client) HTTPClient() *http.Client {
	return client.resty.GetClient()
}

// # Request Options

// RequestOption customizes a single request.
type RequestOption func(*resty.Request)

// WithAuthToken sets a bearer token.
func WithAuthToken(token string) RequestOption {
	return func(r *resty.Request) {
		r.SetAuthToken(token)
	}
}

// WithQuery adds query parameters, skipping empty values.
func WithQuery(params map[string]string) RequestOption {
	return func(r *resty.Request) {
		for key, value := range params {
			if value != "" {
				r.SetQueryParam(key, value)
			}
		}
	}
}

// WithResult decodes a successful JSON body into result.
func WithResult(result any) RequestOption {
	return func(r *resty.Request) {
		if result != nil {
			r.SetResult(result)
		}
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *resty.Request) {
		r.SetHeader(key, value)
	}
}

// # Execution

// Get performs a GET against path, relative to the base URL.
func (client *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*resty.Response, error) {
	return client.Request(ctx, http.MethodGet, path, opts...)
}

// Request performs an HTTP call inside a client span.
func (client *Client) Request(ctx context.Context, method, path string, opts ...RequestOption) (*resty.Response, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, client.upstream+" "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
			attribute.String("peer.service", client.upstream),
		),
	)
	defer span.End()

	request := client.resty.R().SetContext(ctx)
	for _, opt := range opts {
		opt(request)
	}

	// Propagate the trace context to the upstream.
	carrier := propagation.HeaderCarrier(request.Header)
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	response, err := request.Execute(method, path)

	client.record(span, response, err)
	return response, err
}

func (client *Client) record(span trace.Span, response *resty.Response, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		client.metrics.UpstreamCall(client.upstream, "error")
		return
	}

	span.SetAttributes(attribute.Int("http.status_code", response.StatusCode()))
	if response.IsError() {
		span.SetStatus(codes.Error, response.Status())
		client.metrics.UpstreamCall(client.upstream, "http_"+strconv.Itoa(response.StatusCode()))
		return
	}

	span.SetStatus(codes.Ok, "")
	client.metrics.UpstreamCall(client.upstream, "ok")
}
