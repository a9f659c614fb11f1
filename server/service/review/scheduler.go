// Package review implements the spaced-repetition core: the mastery
// transition scheduler, the practice session manager, and the statistics
// derived from the review log ledger.
//
// The scheduler is a pure function; all wall-clock time is injected at the
// call site. The session manager is stateless between calls: the current
// session is always resolved with a store query, never cached in process.
package review

import (
	"github.com/fixitapp/fixit/store"
)

const (
	// MinMasteryLevel is the floor of the mastery scale (unlearned).
	MinMasteryLevel int32 = 0
	// MaxMasteryLevel is the ceiling of the mastery scale (expert).
	MaxMasteryLevel int32 = 5
)

// reviewIntervalDays maps a mastery level to its review delay in days.
var reviewIntervalDays = []int32{0, 1, 3, 7, 14, 30}

// Transition is the result of applying one review outcome to a mastery level.
type Transition struct {
	// NewLevel is the resulting mastery level, always within [0,5].
	NewLevel int32
	// DelayDays is days until the next review, never negative.
	DelayDays int32
}

// NextReview computes the mastery transition for a submitted outcome.
//
//   - FORGOTTEN drops one level (floored at 0) and always schedules the
//     next review for tomorrow, regardless of the resulting level.
//   - FUZZY keeps the level and schedules by the current level's interval.
//   - MASTERED climbs one level (capped at 5) and schedules by the new
//     level's interval.
//
// Out-of-range input levels are clamped into [0,5] before the transition
// applies, so the result always stays on the scale.
func NextReview(currentLevel int32, status store.ReviewStatus) Transition {
	currentLevel = clampLevel(currentLevel)
	switch status {
	case store.ReviewForgotten:
		newLevel := currentLevel - 1
		if newLevel < MinMasteryLevel {
			newLevel = MinMasteryLevel
		}
		return Transition{NewLevel: newLevel, DelayDays: 1}
	case store.ReviewMastered:
		newLevel := currentLevel + 1
		if newLevel > MaxMasteryLevel {
			newLevel = MaxMasteryLevel
		}
		return Transition{NewLevel: newLevel, DelayDays: reviewIntervalDays[newLevel]}
	default:
		// FUZZY and any unknown status leave the level untouched.
		return Transition{NewLevel: currentLevel, DelayDays: reviewIntervalDays[currentLevel]}
	}
}

func clampLevel(level int32) int32 {
	if level < MinMasteryLevel {
		return MinMasteryLevel
	}
	if level > MaxMasteryLevel {
		return MaxMasteryLevel
	}
	return level
}
