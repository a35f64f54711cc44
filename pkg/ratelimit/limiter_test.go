package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLimiterStore_KeysAreIndependent(t *testing.T) {
	s := NewLimiterStore(rate.Limit(1), 1)

	assert.True(t, s.Allow("10.0.0.1"))
	assert.False(t, s.Allow("10.0.0.1"), "burst of one is spent")
	assert.True(t, s.Allow("10.0.0.2"), "a different key has its own bucket")
}

func TestLimiterStore_ReusesLimiterPerKey(t *testing.T) {
	s := NewLimiterStore(rate.Limit(1), 5)

	first := s.GetLimiter("10.0.0.1")
	assert.Same(t, first, s.GetLimiter("10.0.0.1"))
	assert.NotSame(t, first, s.GetLimiter("10.0.0.2"))
}
