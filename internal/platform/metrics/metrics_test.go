// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/essence/internal/platform/metrics"
)

/*
TestMetrics_GuardDecision verifies the guard counter is labelled by decision.
*/
func TestMetrics_GuardDecision(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := metrics.New(registry)

	recorder.GuardDecision("allow")
	recorder.GuardDecision("allow")
	recorder.GuardDecision("redirect_to_login")

	expected := `
# HELP essence_guard_decisions_total Authorization decisions taken by route guards.
# TYPE essence_guard_decisions_total counter
essence_guard_decisions_total{decision="allow"} 2
essence_guard_decisions_total{decision="redirect_to_login"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "essence_guard_decisions_total"))
}

/*
TestMetrics_NilIsNoop verifies a nil recorder is safe to call.
*/
func TestMetrics_NilIsNoop(t *testing.T) {
	var recorder *metrics.Metrics

	assert.NotPanics(t, func() {
		recorder.GuardDecision("allow")
		recorder.SessionEvent("signed_in")
		recorder.UpstreamCall("catalog", "ok")
		recorder.ObserveRequest(http.MethodGet, http.StatusOK, time.Millisecond)
	})
}

/*
TestMetrics_Handler verifies the exposition endpoint serves registered collectors.
*/
func TestMetrics_Handler(t *testing.T) {
	registry, recorder := metrics.NewRegistry()
	recorder.SessionEvent("signed_out")

	response := httptest.NewRecorder()
	metrics.Handler(registry).ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), `essence_session_events_total{kind="signed_out"} 1`)
}
