package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixitapp/fixit/store"
)

func TestNextReview(t *testing.T) {
	tests := []struct {
		name      string
		level     int32
		status    store.ReviewStatus
		wantLevel int32
		wantDelay int32
	}{
		{
			name:      "Mastered advances one level",
			level:     2,
			status:    store.ReviewMastered,
			wantLevel: 3,
			wantDelay: 7,
		},
		{
			name:      "Mastered at ceiling stays at five",
			level:     5,
			status:    store.ReviewMastered,
			wantLevel: 5,
			wantDelay: 30,
		},
		{
			name:      "Mastered from zero",
			level:     0,
			status:    store.ReviewMastered,
			wantLevel: 1,
			wantDelay: 1,
		},
		{
			name:      "Fuzzy keeps the level",
			level:     3,
			status:    store.ReviewFuzzy,
			wantLevel: 3,
			wantDelay: 7,
		},
		{
			name:      "Fuzzy at two comes back in three days",
			level:     2,
			status:    store.ReviewFuzzy,
			wantLevel: 2,
			wantDelay: 3,
		},
		{
			name:      "Fuzzy at zero comes back in a day",
			level:     0,
			status:    store.ReviewFuzzy,
			wantLevel: 0,
			wantDelay: 0,
		},
		{
			name:      "Forgotten drops one level",
			level:     4,
			status:    store.ReviewForgotten,
			wantLevel: 3,
			wantDelay: 1,
		},
		{
			name:      "Forgotten at floor stays at zero",
			level:     0,
			status:    store.ReviewForgotten,
			wantLevel: 0,
			wantDelay: 1,
		},
		{
			name:      "Forgotten always retries tomorrow",
			level:     5,
			status:    store.ReviewForgotten,
			wantLevel: 4,
			wantDelay: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextReview(tt.level, tt.status)
			assert.Equal(t, tt.wantLevel, got.NewLevel)
			assert.Equal(t, tt.wantDelay, got.DelayDays)
		})
	}
}

// TestNextReviewBounds feeds out-of-range levels; the transition must clamp
// instead of indexing past the interval table.
func TestNextReviewBounds(t *testing.T) {
	for _, status := range []store.ReviewStatus{store.ReviewForgotten, store.ReviewFuzzy, store.ReviewMastered} {
		for _, level := range []int32{-3, -1, 6, 42} {
			got := NextReview(level, status)
			assert.GreaterOrEqual(t, got.NewLevel, MinMasteryLevel, "status %s level %d", status, level)
			assert.LessOrEqual(t, got.NewLevel, MaxMasteryLevel, "status %s level %d", status, level)
			assert.GreaterOrEqual(t, got.DelayDays, int32(0), "status %s level %d", status, level)
		}
	}
}

// TestNextReviewClimb walks a question from zero to the ceiling with
// consecutive MASTERED outcomes and checks the interval grows each step.
func TestNextReviewClimb(t *testing.T) {
	level := int32(0)
	prevDelay := int32(0)
	for i := 0; i < 5; i++ {
		got := NextReview(level, store.ReviewMastered)
		assert.Equal(t, level+1, got.NewLevel)
		assert.GreaterOrEqual(t, got.DelayDays, prevDelay)
		level = got.NewLevel
		prevDelay = got.DelayDays
	}
	assert.Equal(t, int32(5), level)

	// One slip drops back to 4 with a next-day retry.
	got := NextReview(level, store.ReviewForgotten)
	assert.Equal(t, int32(4), got.NewLevel)
	assert.Equal(t, int32(1), got.DelayDays)
}
