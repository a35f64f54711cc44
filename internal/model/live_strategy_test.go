package model

import (
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/stretchr/testify/assert"
)

func TestSnapCheckInterval(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{45, 60},
		{60, 60},
		{200, 300},
		{180, 60}, // ties keep the smaller interval
		{1000, 900},
		{2500, 1800},
		{100000, 3600},
		{0, 60},
		{-5, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SnapCheckInterval(tt.in), "SnapCheckInterval(%d)", tt.in)
	}
}

func TestLiveStrategy_Normalize(t *testing.T) {
	s := &LiveStrategy{
		Symbols:       datatypes.JSONSlice[string]{" aapl ", "AAPL", "msft", "", "  "},
		CheckInterval: 100,
	}
	s.Normalize()

	assert.Equal(t, []string{"AAPL", "MSFT"}, []string(s.Symbols))
	assert.Equal(t, 60, s.CheckInterval)
}

func TestLiveStrategy_DueAt(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	s := &LiveStrategy{CheckInterval: 300}
	assert.True(t, s.DueAt(now), "never checked means due")

	checked := now.Add(-299 * time.Second)
	s.LastCheck = &checked
	assert.False(t, s.DueAt(now))

	checked = now.Add(-300 * time.Second)
	s.LastCheck = &checked
	assert.True(t, s.DueAt(now), "exactly one interval elapsed is due")

	// stored timestamps compare in UTC regardless of zone
	local := time.FixedZone("UTC+7", 7*3600)
	checked = now.Add(-10 * time.Minute).In(local)
	s.LastCheck = &checked
	assert.True(t, s.DueAt(now))
}
