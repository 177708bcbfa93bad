// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/respond"
)

// # Rate Limiting

// Limits configures the per-IP token bucket.
type Limits struct {
	PerSecond float64
	Burst     int

	// IdleTTL is how long an address may stay quiet before its bucket is dropped.
	IdleTTL time.Duration
}

// DefaultLimits is what the API server runs with.
var DefaultLimits = Limits{
	PerSecond: constants.DefaultRateLimitRPS,
	Burst:     constants.DefaultRateLimitBurst,
	IdleTTL:   constants.RateLimitClientTTL,
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter owns one bucket per client address.
type ipLimiter struct {
	limits  Limits
	mu      sync.Mutex
	buckets map[string]*bucket
}

func (limiter *ipLimiter) allow(ip string, now time.Time) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	entry, found := limiter.buckets[ip]
	if !found {
		entry = &bucket{limiter: rate.NewLimiter(rate.Limit(limiter.limits.PerSecond), limiter.limits.Burst)}
		limiter.buckets[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (limiter *ipLimiter) sweep(now time.Time) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for ip, entry := range limiter.buckets {
		if now.Sub(entry.lastSeen) > limiter.limits.IdleTTL {
			delete(limiter.buckets, ip)
		}
	}
}

// RateLimit rejects callers that exceed their token bucket with a 429 and a
// one second Retry-After. Idle buckets are swept until context is cancelled.
func RateLimit(context context.Context, limits Limits) func(http.Handler) http.Handler {
	limiter := &ipLimiter{limits: limits, buckets: make(map[string]*bucket)}

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				limiter.sweep(now)
			case <-context.Done():
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !limiter.allow(RealIP(request), time.Now()) {
				respond.Error(writer, request, apperr.RateLimited(1))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RealIP returns the client address, preferring X-Real-IP then the first X-Forwarded-For hop.
func RealIP(request *http.Request) string {
	if ip := request.Header.Get(constants.HeaderXRealIP); ip != "" {
		return ip
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
