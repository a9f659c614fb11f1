package store

import (
	"context"
)

// Question is the object representing a mistake-notebook entry.
type Question struct {
	// ID is the system generated unique identifier for the question.
	ID int32
	// UID is the user-visible unique identifier for the question.
	UID string

	// Standard fields
	CreatorID int32
	CreatedTs int64
	UpdatedTs int64

	// Domain specific fields
	Content  string
	Answer   string
	Analysis string
	Remark   string
	Subject  string
	// Images holds the ordered attachment UIDs rendered with the question.
	Images []string

	// Spaced-repetition projection. The review_log table is the system of
	// record; these fields are a cached projection maintained on submit.
	MasteryLevel   int32
	NextReviewTs   *int64
	LastReviewedTs *int64
	PracticeCount  int32
	TotalTimeSpent int32

	// Composed fields
	Tags []string
}

// FindQuestion is the find condition for questions.
type FindQuestion struct {
	ID        *int32
	UID       *string
	CreatorID *int32

	// IDList restricts the result to the given ids (any order).
	IDList []int32
	// Subjects restricts to questions whose subject is in the set.
	Subjects []string
	// TagNames restricts to questions carrying at least one of the tags.
	TagNames []string
	// Mastery level range, inclusive.
	MasteryMin *int32
	MasteryMax *int32
	// DueBeforeTs keeps questions with next_review_ts IS NULL OR <= the value.
	DueBeforeTs *int64
	// ContentSearch matches content/answer/analysis substrings.
	ContentSearch *string

	// OrderByNextReview orders by next_review_ts ASC (nulls first),
	// created_ts ASC. Default ordering is created_ts DESC.
	OrderByNextReview bool

	// Pagination
	Limit  *int
	Offset *int
}

// UpdateQuestion is the update request for a question's content fields.
type UpdateQuestion struct {
	ID        int32
	UpdatedTs *int64
	Content   *string
	Answer    *string
	Analysis  *string
	Remark    *string
	Subject   *string
	Images    *[]string
	// Tags replaces the question's tag set when non-nil (lazy tag creation
	// is handled by the service layer).
	Tags *[]string
}

// UpdateQuestionReview is the atomic update of the spaced-repetition
// projection fields performed on outcome submission.
type UpdateQuestionReview struct {
	ID             int32
	MasteryLevel   int32
	NextReviewTs   int64
	LastReviewedTs int64
	// PracticeCountDelta and TimeSpentDelta are added to the stored counters.
	PracticeCountDelta int32
	TimeSpentDelta     int32
}

// DeleteQuestion is the delete request for a question.
// Deletion cascades to review logs and tag joins.
type DeleteQuestion struct {
	ID int32
}

// CreateQuestion creates a new question.
func (s *Store) CreateQuestion(ctx context.Context, create *Question) (*Question, error) {
	return s.driver.CreateQuestion(ctx, create)
}

// ListQuestions lists questions with filter.
func (s *Store) ListQuestions(ctx context.Context, find *FindQuestion) ([]*Question, error) {
	return s.driver.ListQuestions(ctx, find)
}

// GetQuestion gets a question by find condition.
func (s *Store) GetQuestion(ctx context.Context, find *FindQuestion) (*Question, error) {
	list, err := s.driver.ListQuestions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateQuestion updates a question's content fields.
func (s *Store) UpdateQuestion(ctx context.Context, update *UpdateQuestion) error {
	return s.driver.UpdateQuestion(ctx, update)
}

// SubmitQuestionReview applies the review projection update and appends the
// review log entry in one driver transaction. The log insert runs last so a
// failure before it leaves no orphaned log entry.
func (s *Store) SubmitQuestionReview(ctx context.Context, update *UpdateQuestionReview, log *ReviewLog) (*ReviewLog, error) {
	return s.driver.SubmitQuestionReview(ctx, update, log)
}

// DeleteQuestion deletes a question and its owned review logs and tag joins.
func (s *Store) DeleteQuestion(ctx context.Context, delete *DeleteQuestion) error {
	return s.driver.DeleteQuestion(ctx, delete)
}
