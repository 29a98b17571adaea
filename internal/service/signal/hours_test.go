package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestForexMarketOpen(t *testing.T) {
	testCases := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"wednesday midday", time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC), true},
		{"friday before close", time.Date(2024, 6, 7, 21, 59, 0, 0, time.UTC), true},
		{"friday at close", time.Date(2024, 6, 7, 22, 0, 0, 0, time.UTC), false},
		{"saturday", time.Date(2024, 6, 8, 10, 0, 0, 0, time.UTC), false},
		{"sunday before open", time.Date(2024, 6, 9, 21, 59, 0, 0, time.UTC), false},
		{"sunday at open", time.Date(2024, 6, 9, 22, 0, 0, 0, time.UTC), true},
		{"monday early", time.Date(2024, 6, 10, 0, 30, 0, 0, time.UTC), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.open, ForexMarketOpen(tc.at))
		})
	}
}

func TestForexMarketOpen_NonUTCInput(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	// 23:30 local friday is 21:30 UTC, still open
	assert.True(t, ForexMarketOpen(time.Date(2024, 6, 7, 23, 30, 0, 0, loc)))
	// 00:30 local saturday is 22:30 UTC friday, closed
	assert.False(t, ForexMarketOpen(time.Date(2024, 6, 8, 0, 30, 0, 0, loc)))
}
