// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/respond"
)

// readinessTimeout bounds every dependency check of /ready.
const readinessTimeout = 3 * time.Second

// HealthDependencies holds the checks consulted by /ready.
type HealthDependencies struct {
	// CheckDatabase pings the PostgreSQL pool.
	CheckDatabase func(ctx context.Context) error

	// CheckCache pings the Redis client.
	CheckCache func(ctx context.Context) error
}

type check struct {
	name string
	run  func(ctx context.Context) error
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewHealthHandlers creates the /health and /ready handlers.
//
// /health answers as long as the process runs. /ready is 503 while any
// configured dependency fails its check.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	var checks []check
	if deps.CheckDatabase != nil {
		checks = append(checks, check{name: "postgres", run: deps.CheckDatabase})
	}
	if deps.CheckCache != nil {
		checks = append(checks, check{name: "redis", run: deps.CheckCache})
	}

	liveness = func(writer http.ResponseWriter, _ *http.Request) {
		respond.OK(writer, map[string]string{
			constants.FieldStatus:  "ok",
			constants.FieldApp:     constants.AppName,
			constants.FieldVersion: constants.AppVersion,
		})
	}

	readiness = func(writer http.ResponseWriter, request *http.Request) {
		ctx, cancel := context.WithTimeout(request.Context(), readinessTimeout)
		defer cancel()

		results := make([]checkResult, 0, len(checks))
		ready := true
		for _, dependency := range checks {
			result := checkResult{Name: dependency.name, IsOK: true}
			if err := dependency.run(ctx); err != nil {
				result.IsOK, result.Error = false, err.Error()
				ready = false
				logger.Error("readiness_check_failed",
					slog.String("dependency", dependency.name),
					slog.String("error", err.Error()),
				)
			}
			results = append(results, result)
		}

		state, code := "ready", http.StatusOK
		if !ready {
			state, code = "degraded", http.StatusServiceUnavailable
		}
		respond.JSON(writer, code, respond.SuccessEnvelope{Data: map[string]any{
			constants.FieldStatus: state,
			constants.FieldChecks: results,
		}})
	}

	return liveness, readiness
}
