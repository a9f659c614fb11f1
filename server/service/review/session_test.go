package review

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixitapp/fixit/store"
)

// mockStore is an in-memory implementation of the Store interface.
type mockStore struct {
	questions []*store.Question
	logs      []*store.ReviewLog
	sessions  []*store.PracticeSession
	nextID    int32
	now       func() time.Time
}

func newMockStore(now func() time.Time) *mockStore {
	return &mockStore{nextID: 1, now: now}
}

func (m *mockStore) ListQuestions(_ context.Context, find *store.FindQuestion) ([]*store.Question, error) {
	result := make([]*store.Question, 0)
	for _, q := range m.questions {
		if find.UID != nil && q.UID != *find.UID {
			continue
		}
		if find.CreatorID != nil && q.CreatorID != *find.CreatorID {
			continue
		}
		if len(find.IDList) > 0 {
			found := false
			for _, id := range find.IDList {
				if q.ID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if len(find.Subjects) > 0 {
			found := false
			for _, s := range find.Subjects {
				if q.Subject == s {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if find.MasteryMin != nil && q.MasteryLevel < *find.MasteryMin {
			continue
		}
		if find.MasteryMax != nil && q.MasteryLevel > *find.MasteryMax {
			continue
		}
		// Never-reviewed questions count as due.
		if find.DueBeforeTs != nil && q.NextReviewTs != nil && *q.NextReviewTs > *find.DueBeforeTs {
			continue
		}
		result = append(result, q)
	}
	if find.Limit != nil && len(result) > *find.Limit {
		result = result[:*find.Limit]
	}
	return result, nil
}

func (m *mockStore) SubmitQuestionReview(_ context.Context, update *store.UpdateQuestionReview, log *store.ReviewLog) (*store.ReviewLog, error) {
	for _, q := range m.questions {
		if q.ID == update.ID {
			q.MasteryLevel = update.MasteryLevel
			nextTs := update.NextReviewTs
			lastTs := update.LastReviewedTs
			q.NextReviewTs = &nextTs
			q.LastReviewedTs = &lastTs
			q.PracticeCount += update.PracticeCountDelta
			q.TotalTimeSpent += update.TimeSpentDelta
			break
		}
	}
	log.ID = m.nextID
	m.nextID++
	m.logs = append(m.logs, log)
	return log, nil
}

func (m *mockStore) ListReviewLogs(_ context.Context, find *store.FindReviewLog) ([]*store.ReviewLog, error) {
	result := make([]*store.ReviewLog, 0)
	for _, log := range m.logs {
		if find.QuestionID != nil && log.QuestionID != *find.QuestionID {
			continue
		}
		if find.UserID != nil && log.UserID != *find.UserID {
			continue
		}
		if find.CreatedTsAfter != nil && log.CreatedTs < *find.CreatedTsAfter {
			continue
		}
		if find.CreatedTsBefore != nil && log.CreatedTs > *find.CreatedTsBefore {
			continue
		}
		result = append(result, log)
	}
	return result, nil
}

func (m *mockStore) CreatePracticeSession(_ context.Context, create *store.PracticeSession) (*store.PracticeSession, error) {
	create.ID = m.nextID
	m.nextID++
	create.StartedTs = m.now().Unix()
	m.sessions = append(m.sessions, create)
	return create, nil
}

func (m *mockStore) ListPracticeSessions(_ context.Context, find *store.FindPracticeSession) ([]*store.PracticeSession, error) {
	result := make([]*store.PracticeSession, 0)
	for _, s := range m.sessions {
		if find.UID != nil && s.UID != *find.UID {
			continue
		}
		if find.UserID != nil && s.UserID != *find.UserID {
			continue
		}
		if find.Status != nil && s.Status != *find.Status {
			continue
		}
		result = append(result, s)
	}
	if find.Limit != nil && len(result) > *find.Limit {
		result = result[:*find.Limit]
	}
	return result, nil
}

func (m *mockStore) UpdatePracticeSession(_ context.Context, update *store.UpdatePracticeSession) error {
	for _, s := range m.sessions {
		if s.ID == update.ID {
			if update.CurrentIndex != nil {
				s.CurrentIndex = *update.CurrentIndex
			}
			if update.Status != nil {
				s.Status = *update.Status
			}
			if update.CompletedTs != nil {
				s.CompletedTs = update.CompletedTs
			}
			break
		}
	}
	return nil
}

func (m *mockStore) addQuestion(userID int32, uid string, level int32, nextReviewTs *int64) *store.Question {
	q := &store.Question{
		ID:           m.nextID,
		UID:          uid,
		CreatorID:    userID,
		Content:      "content of " + uid,
		MasteryLevel: level,
		NextReviewTs: nextReviewTs,
	}
	m.nextID++
	m.questions = append(m.questions, q)
	return q
}

func newTestService(m *mockStore, now time.Time) *Service {
	return NewService(m,
		WithClock(func() time.Time { return now }),
		WithRand(rand.New(rand.NewSource(1))),
	)
}

func ts(t time.Time) *int64 {
	v := t.Unix()
	return &v
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })

	// Two due, one never reviewed, one not due yet.
	due1 := m.addQuestion(userID, "q-due-1", 2, ts(now.AddDate(0, 0, -1)))
	due2 := m.addQuestion(userID, "q-due-2", 1, ts(now.AddDate(0, 0, -3)))
	fresh := m.addQuestion(userID, "q-fresh", 0, nil)
	m.addQuestion(userID, "q-later", 4, ts(now.AddDate(0, 0, 5)))

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, userID, 10, Filters{})
	require.NoError(t, err)

	assert.Equal(t, store.SessionActive, session.Status)
	assert.Equal(t, int32(3), session.TotalCount)
	assert.Equal(t, int32(0), session.CurrentIndex)
	assert.Equal(t, int32(0), session.FinishedCount)
	require.Len(t, session.Questions, 3)

	got := map[int32]bool{}
	for _, q := range session.Questions {
		got[q.ID] = true
	}
	assert.True(t, got[due1.ID])
	assert.True(t, got[due2.ID])
	assert.True(t, got[fresh.ID])
}

func TestStartSessionForceCompletesPrevious(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	m.addQuestion(userID, "q-1", 0, nil)

	svc := newTestService(m, now)
	first, err := svc.Start(ctx, userID, 10, Filters{})
	require.NoError(t, err)

	second, err := svc.Start(ctx, userID, 10, Filters{})
	require.NoError(t, err)
	assert.NotEqual(t, first.UID, second.UID)

	// The first session is now completed; only the second is active.
	active := store.SessionActive
	actives, err := m.ListPracticeSessions(ctx, &store.FindPracticeSession{UserID: &userID, Status: &active})
	require.NoError(t, err)
	require.Len(t, actives, 1)
	assert.Equal(t, second.UID, actives[0].UID)

	completed := store.SessionCompleted
	dones, err := m.ListPracticeSessions(ctx, &store.FindPracticeSession{UserID: &userID, Status: &completed})
	require.NoError(t, err)
	require.Len(t, dones, 1)
	assert.Equal(t, first.UID, dones[0].UID)
	require.NotNil(t, dones[0].CompletedTs)
}

func TestStartSessionFallback(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })

	// Nothing due: both scheduled in the future.
	m.addQuestion(userID, "q-1", 3, ts(now.AddDate(0, 0, 2)))
	m.addQuestion(userID, "q-2", 4, ts(now.AddDate(0, 0, 9)))

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, userID, 10, Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), session.TotalCount)
}

func TestStartSessionNoCandidates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })

	svc := newTestService(m, now)
	_, err := svc.Start(ctx, 1, 10, Filters{})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestStartSessionHonorsLimit(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	for i := 0; i < 8; i++ {
		m.addQuestion(userID, "q-"+string(rune('a'+i)), 0, nil)
	}

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, userID, 5, Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(5), session.TotalCount)
	assert.Len(t, session.Questions, 5)
}

func TestResetSessionDueOnly(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })

	// Questions exist but none are due: Reset must not fall back.
	m.addQuestion(userID, "q-1", 3, ts(now.AddDate(0, 0, 2)))

	svc := newTestService(m, now)
	_, err := svc.Reset(ctx, userID, 10)
	assert.ErrorIs(t, err, ErrNoCandidates)

	// A due question makes Reset succeed.
	m.addQuestion(userID, "q-2", 1, ts(now.AddDate(0, 0, -1)))
	session, err := svc.Reset(ctx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), session.TotalCount)
	assert.Equal(t, "q-2", session.Questions[0].UID)
}

func TestSubmitAnswer(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	m.addQuestion(userID, "q-1", 2, ts(now.AddDate(0, 0, -1)))
	m.addQuestion(userID, "q-2", 0, nil)

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, userID, 10, Filters{})
	require.NoError(t, err)
	require.Equal(t, int32(2), session.TotalCount)

	first := session.Questions[0]
	result, err := svc.SubmitAnswer(ctx, userID, session.UID, first.UID, store.ReviewMastered, "got it", 42)
	require.NoError(t, err)
	assert.False(t, result.IsCompleted)
	assert.Equal(t, store.SessionActive, result.Status)
	assert.Equal(t, int32(1), result.CurrentIndex)
	assert.Equal(t, int32(1), result.FinishedCount)
	assert.Equal(t, int32(2), result.TotalCount)

	// The projection moved and the ledger grew by one.
	var updated *store.Question
	for _, q := range m.questions {
		if q.UID == first.UID {
			updated = q
		}
	}
	require.NotNil(t, updated)
	assert.Equal(t, int32(1), updated.PracticeCount)
	assert.Equal(t, int32(42), updated.TotalTimeSpent)
	require.NotNil(t, updated.NextReviewTs)
	assert.Greater(t, *updated.NextReviewTs, now.Unix())
	require.Len(t, m.logs, 1)
	assert.Equal(t, store.ReviewMastered, m.logs[0].Status)
	assert.Equal(t, "got it", m.logs[0].Note)
	assert.Equal(t, int32(42), m.logs[0].Duration)

	second := session.Questions[1]
	result, err = svc.SubmitAnswer(ctx, userID, session.UID, second.UID, store.ReviewForgotten, "", 10)
	require.NoError(t, err)
	assert.True(t, result.IsCompleted)
	assert.Equal(t, store.SessionCompleted, result.Status)
	assert.Equal(t, int32(2), result.CurrentIndex)
	require.NotNil(t, result.CompletedTs)
	assert.Equal(t, now.Unix(), *result.CompletedTs)
}

func TestSubmitAnswerOutOfOrder(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	m.addQuestion(userID, "q-1", 0, nil)
	m.addQuestion(userID, "q-2", 0, nil)
	m.addQuestion(userID, "q-3", 0, nil)

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, userID, 10, Filters{})
	require.NoError(t, err)

	// Submitting the last question while the cursor points at the first is
	// accepted; the cursor advances regardless.
	last := session.Questions[2]
	result, err := svc.SubmitAnswer(ctx, userID, session.UID, last.UID, store.ReviewFuzzy, "", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), result.CurrentIndex)
	assert.False(t, result.IsCompleted)
}

func TestSubmitAnswerValidation(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	m.addQuestion(userID, "q-1", 0, nil)

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, userID, 10, Filters{})
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(ctx, userID, session.UID, "q-1", "SKIPPED", "", 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.SubmitAnswer(ctx, userID, session.UID, "q-missing", store.ReviewMastered, "", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SubmitAnswer(ctx, userID, "no-such-session", "q-1", store.ReviewMastered, "", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	// Completing the session closes it to further submissions.
	result, err := svc.SubmitAnswer(ctx, userID, session.UID, "q-1", store.ReviewMastered, "", 0)
	require.NoError(t, err)
	require.True(t, result.IsCompleted)

	_, err = svc.SubmitAnswer(ctx, userID, session.UID, "q-1", store.ReviewMastered, "", 0)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestNavigateClamps(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	m.addQuestion(userID, "q-1", 0, nil)
	m.addQuestion(userID, "q-2", 0, nil)

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, userID, 10, Filters{})
	require.NoError(t, err)

	// Prev at the start stays put.
	got, err := svc.Navigate(ctx, userID, session.UID, DirectionPrev)
	require.NoError(t, err)
	assert.Equal(t, int32(0), got.CurrentIndex)

	got, err = svc.Navigate(ctx, userID, session.UID, DirectionNext)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.CurrentIndex)

	// Next at the last question clamps and never completes the session.
	got, err = svc.Navigate(ctx, userID, session.UID, DirectionNext)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.CurrentIndex)
	assert.Equal(t, store.SessionActive, got.Status)

	_, err = svc.Navigate(ctx, userID, session.UID, Direction("sideways"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestJumpTo(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	m.addQuestion(userID, "q-1", 0, nil)
	m.addQuestion(userID, "q-2", 0, nil)
	m.addQuestion(userID, "q-3", 0, nil)
	outside := m.addQuestion(userID, "q-outside", 5, ts(now.AddDate(0, 0, 30)))

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, userID, 3, Filters{})
	require.NoError(t, err)
	require.Equal(t, int32(3), session.TotalCount)

	target := session.Questions[2]
	got, err := svc.JumpTo(ctx, userID, session.UID, target.UID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), got.CurrentIndex)

	// q-outside was never due, so it cannot be part of the snapshot.
	_, err = svc.JumpTo(ctx, userID, session.UID, outside.UID)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	m.addQuestion(userID, "q-1", 0, nil)

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, userID, 10, Filters{})
	require.NoError(t, err)

	got, err := svc.UpdateStatus(ctx, userID, session.UID, store.SessionTomorrow)
	require.NoError(t, err)
	assert.Equal(t, store.SessionTomorrow, got.Status)
	require.NotNil(t, got.CompletedTs)
	assert.Equal(t, now.Unix(), *got.CompletedTs)

	_, err = svc.UpdateStatus(ctx, userID, session.UID, store.SessionStatus("PAUSED"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSessionOwnership(t *testing.T) {
	ctx := context.Background()
	owner := int32(1)
	stranger := int32(2)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	m.addQuestion(owner, "q-1", 0, nil)

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, owner, 10, Filters{})
	require.NoError(t, err)

	// A foreign session reads as not found, never as forbidden.
	_, err = svc.Navigate(ctx, stranger, session.UID, DirectionNext)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.SubmitAnswer(ctx, stranger, session.UID, "q-1", store.ReviewMastered, "", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSessionSkipsDeletedQuestions(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	m.addQuestion(userID, "q-1", 0, nil)
	doomed := m.addQuestion(userID, "q-2", 0, nil)
	m.addQuestion(userID, "q-3", 0, nil)

	svc := newTestService(m, now)
	session, err := svc.Start(ctx, userID, 10, Filters{})
	require.NoError(t, err)
	require.Equal(t, int32(3), session.TotalCount)

	// Delete one snapshot member out from under the session.
	kept := m.questions[:0]
	for _, q := range m.questions {
		if q.ID != doomed.ID {
			kept = append(kept, q)
		}
	}
	m.questions = kept

	got, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Questions, 2)
	// The reported total still follows the snapshot.
	assert.Equal(t, int32(3), got.TotalCount)
}

func TestGetSessionNoneActive(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })

	svc := newTestService(m, now)
	got, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}
