// Package middleware holds HTTP middleware helpers shared by the routers.
package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Credential endpoints are throttled hard: one attempt per second per
	// client with a small burst for typo retries.
	loginAttemptsPerSecond = 1
	loginBurst             = 5

	// Limiters idle longer than this are dropped by the sweep.
	limiterTTL = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client key, typically the remote
// address. Stale entries are swept on access so the map does not grow with
// every address ever seen.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
	}
}

// Allow reports whether a request from the given client may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > limiterTTL {
		rl.sweep(now)
	}

	client, ok := rl.clients[key]
	if !ok {
		client = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(loginAttemptsPerSecond), loginBurst),
		}
		rl.clients[key] = client
	}
	client.lastSeen = now
	return client.limiter.Allow()
}

func (rl *RateLimiter) sweep(now time.Time) {
	for key, client := range rl.clients {
		if now.Sub(client.lastSeen) > limiterTTL {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}
