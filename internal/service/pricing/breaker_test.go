package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAfterThreeConsecutiveFailures(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg := NewBreakerRegistry(3, time.Minute, WithBreakerClock(func() time.Time { return now }))

	reg.MarkFailure("binance")
	reg.MarkFailure("binance")
	assert.False(t, reg.Open("binance"))

	reg.MarkFailure("binance")
	assert.True(t, reg.Open("binance"))

	// Still open just before the minute elapses, closed right after.
	now = now.Add(59 * time.Second)
	assert.True(t, reg.Open("binance"))
	now = now.Add(2 * time.Second)
	assert.False(t, reg.Open("binance"))
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg := NewBreakerRegistry(3, time.Minute, WithBreakerClock(func() time.Time { return now }))

	reg.MarkFailure("yahoo")
	reg.MarkFailure("yahoo")
	reg.MarkSuccess("yahoo")
	reg.MarkFailure("yahoo")
	reg.MarkFailure("yahoo")
	assert.False(t, reg.Open("yahoo"), "failures were not consecutive")

	reg.MarkFailure("yahoo")
	assert.True(t, reg.Open("yahoo"))
}

func TestBreaker_ProvidersAreIndependent(t *testing.T) {
	reg := NewBreakerRegistry(3, time.Minute)
	for i := 0; i < 3; i++ {
		reg.MarkFailure("dia")
	}
	assert.True(t, reg.Open("dia"))
	assert.False(t, reg.Open("coingecko"))
}
