package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter()

	allowed := 0
	for i := 0; i < loginBurst*2; i++ {
		if rl.Allow("10.0.0.1") {
			allowed++
		}
	}
	assert.Equal(t, loginBurst, allowed)
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < loginBurst*2; i++ {
		rl.Allow("10.0.0.1")
	}
	assert.True(t, rl.Allow("10.0.0.2"), "another client must not be throttled")
}
