package store

import (
	"context"
)

// SessionStatus is the lifecycle state of a practice session.
type SessionStatus string

const (
	// SessionActive is the only state accepting navigation and submissions.
	SessionActive SessionStatus = "ACTIVE"
	// SessionCompleted is terminal, reached when the cursor exhausts the
	// question list or via an explicit status update.
	SessionCompleted SessionStatus = "COMPLETED"
	// SessionTomorrow defers the rest of the round to the next day.
	SessionTomorrow SessionStatus = "TOMORROW"
)

func (s SessionStatus) String() string {
	return string(s)
}

// IsValid reports whether s is a known session status.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionTomorrow:
		return true
	}
	return false
}

// PracticeSession is one bounded round of reviewing a fixed batch of
// questions. QuestionIDs is a snapshot taken at creation time, not a live
// query; ids whose question has since been deleted are skipped on
// rehydration without shifting the cursor or the reported total.
type PracticeSession struct {
	ID     int32
	UID    string
	UserID int32

	QuestionIDs  []int32
	CurrentIndex int32
	DailyLimit   int32
	Status       SessionStatus

	StartedTs   int64
	CompletedTs *int64
}

// FindPracticeSession is the find condition for practice sessions.
type FindPracticeSession struct {
	ID     *int32
	UID    *string
	UserID *int32
	Status *SessionStatus

	// Pagination; results are ordered by started_ts DESC.
	Limit  *int
	Offset *int
}

// UpdatePracticeSession is the update request for a practice session.
type UpdatePracticeSession struct {
	ID           int32
	CurrentIndex *int32
	Status       *SessionStatus
	CompletedTs  *int64
}

// CreatePracticeSession creates a new practice session.
func (s *Store) CreatePracticeSession(ctx context.Context, create *PracticeSession) (*PracticeSession, error) {
	return s.driver.CreatePracticeSession(ctx, create)
}

// ListPracticeSessions lists practice sessions with filter, newest first.
func (s *Store) ListPracticeSessions(ctx context.Context, find *FindPracticeSession) ([]*PracticeSession, error) {
	return s.driver.ListPracticeSessions(ctx, find)
}

// GetPracticeSession gets a practice session by find condition.
func (s *Store) GetPracticeSession(ctx context.Context, find *FindPracticeSession) (*PracticeSession, error) {
	list, err := s.driver.ListPracticeSessions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdatePracticeSession updates a practice session.
func (s *Store) UpdatePracticeSession(ctx context.Context, update *UpdatePracticeSession) error {
	return s.driver.UpdatePracticeSession(ctx, update)
}
