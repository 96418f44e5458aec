// Package ratelimit provides per-host token-bucket rate limiting for
// outbound market data requests.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter rate-limits outbound requests per upstream host.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter builds a limiter with the given requests-per-second and burst.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[host] = limiter
	return limiter
}

// Allow reports whether a request to host may proceed right now.
func (l *Limiter) Allow(host string) bool {
	return l.getLimiter(host).Allow()
}

// Wait blocks until a request to host is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	return l.getLimiter(host).Wait(ctx)
}

// Stats returns a snapshot of the limiter state per host, for diagnostics
// and tests.
func (l *Limiter) Stats() map[string]LimiterStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]LimiterStats, len(l.limiters))
	now := time.Now()
	for host, limiter := range l.limiters {
		reservation := limiter.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()

		stats[host] = LimiterStats{
			Host:            host,
			RPS:             float64(limiter.Limit()),
			Burst:           limiter.Burst(),
			TokensAvailable: limiter.Tokens(),
			NextAllowedAt:   now.Add(delay),
			Delay:           delay,
		}
	}
	return stats
}

// LimiterStats is a point-in-time snapshot of one host's token bucket.
type LimiterStats struct {
	Host            string        `json:"host"`
	RPS             float64       `json:"rps"`
	Burst           int           `json:"burst"`
	TokensAvailable float64       `json:"tokens_available"`
	NextAllowedAt   time.Time     `json:"next_allowed_at"`
	Delay           time.Duration `json:"delay"`
}

// IsThrottled reports whether the next request on this host must wait.
func (s LimiterStats) IsThrottled() bool {
	return s.Delay > 0
}
