package store

import (
	"context"
)

// ReviewStatus is the outcome of one review submission.
type ReviewStatus string

const (
	// ReviewForgotten means the user failed to recall the question.
	ReviewForgotten ReviewStatus = "FORGOTTEN"
	// ReviewFuzzy means the user recalled with difficulty.
	ReviewFuzzy ReviewStatus = "FUZZY"
	// ReviewMastered means the user recalled correctly.
	ReviewMastered ReviewStatus = "MASTERED"
)

func (s ReviewStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the three known outcomes.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewForgotten, ReviewFuzzy, ReviewMastered:
		return true
	}
	return false
}

// ReviewLog is one immutable outcome submission. Rows are append-only and
// deleted only by question cascade; all statistics derive from this ledger.
type ReviewLog struct {
	ID         int32
	QuestionID int32
	UserID     int32
	Status     ReviewStatus
	Note       string
	// Duration is the seconds spent on the review, never negative.
	Duration  int32
	CreatedTs int64
}

// FindReviewLog is the find condition for review logs.
type FindReviewLog struct {
	QuestionID *int32
	UserID     *int32
	Status     *ReviewStatus
	// CreatedTsAfter/Before bound created_ts, inclusive.
	CreatedTsAfter  *int64
	CreatedTsBefore *int64

	// Pagination
	Limit  *int
	Offset *int
}

// CreateReviewLog appends one review log entry.
func (s *Store) CreateReviewLog(ctx context.Context, create *ReviewLog) (*ReviewLog, error) {
	return s.driver.CreateReviewLog(ctx, create)
}

// ListReviewLogs lists review logs with filter, newest first.
func (s *Store) ListReviewLogs(ctx context.Context, find *FindReviewLog) ([]*ReviewLog, error) {
	return s.driver.ListReviewLogs(ctx, find)
}
