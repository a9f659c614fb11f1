package review

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/internal/base"
	"github.com/fixitapp/fixit/store"
)

// Store is the interface for store operations needed by the review service.
type Store interface {
	ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error)
	SubmitQuestionReview(ctx context.Context, update *store.UpdateQuestionReview, log *store.ReviewLog) (*store.ReviewLog, error)
	ListReviewLogs(ctx context.Context, find *store.FindReviewLog) ([]*store.ReviewLog, error)
	CreatePracticeSession(ctx context.Context, create *store.PracticeSession) (*store.PracticeSession, error)
	ListPracticeSessions(ctx context.Context, find *store.FindPracticeSession) ([]*store.PracticeSession, error)
	UpdatePracticeSession(ctx context.Context, update *store.UpdatePracticeSession) error
}

// Filters narrows the candidate question set for a new session. All fields
// are optional and combined with AND; multi-valued fields match any value
// within themselves.
type Filters struct {
	Subjects   []string
	TagNames   []string
	MasteryMin *int32
	MasteryMax *int32
}

// Session is the data transfer shape returned by all session operations.
// TotalCount is the fixed length of the session's question id snapshot, not
// the number of currently resolvable questions.
type Session struct {
	UID          string              `json:"uid"`
	Questions    []*store.Question   `json:"questions"`
	CurrentIndex int32               `json:"currentIndex"`
	Status       store.SessionStatus `json:"status"`
	TotalCount   int32               `json:"totalCount"`
	// FinishedCount equals CurrentIndex.
	FinishedCount int32  `json:"finishedCount"`
	DailyLimit    int32  `json:"dailyLimit"`
	StartedTs     int64  `json:"startedTs"`
	CompletedTs   *int64 `json:"completedTs,omitempty"`
}

// SubmitResult is Session plus an explicit completion flag so callers do
// not infer completion from the status string.
type SubmitResult struct {
	*Session
	IsCompleted bool `json:"isCompleted"`
}

// Service orchestrates practice sessions over the store.
type Service struct {
	store Store
	now   func() time.Time
	rand  *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects a fixed timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand injects a deterministic shuffle source, used by tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rand = r }
}

// NewService creates a new review service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a new practice session for the user, force-completing any
// existing active one. Selection prefers due questions ordered
// earliest-due-first; when nothing is due it falls back to the same filters
// without the due condition so the user can get ahead of the schedule.
func (s *Service) Start(ctx context.Context, userID int32, limit int32, filters Filters) (*Session, error) {
	if limit <= 0 {
		limit = 20
	}
	now := s.now().Unix()
	if err := s.completeActiveSessions(ctx, userID, now); err != nil {
		return nil, err
	}

	candidates, err := s.findDueQuestions(ctx, userID, limit, filters, now)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		// Fallback: same filters without the due condition.
		limitInt := int(limit)
		candidates, err = s.store.ListQuestions(ctx, &store.FindQuestion{
			CreatorID:         &userID,
			Subjects:          filters.Subjects,
			TagNames:          filters.TagNames,
			MasteryMin:        filters.MasteryMin,
			MasteryMax:        filters.MasteryMax,
			OrderByNextReview: true,
			Limit:             &limitInt,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to list fallback questions")
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	return s.createSession(ctx, userID, limit, candidates)
}

// Reset begins a new session drawing only from due questions; unlike Start
// there is no fallback to the full question set.
func (s *Service) Reset(ctx context.Context, userID int32, limit int32) (*Session, error) {
	if limit <= 0 {
		limit = 20
	}
	now := s.now().Unix()
	if err := s.completeActiveSessions(ctx, userID, now); err != nil {
		return nil, err
	}

	candidates, err := s.findDueQuestions(ctx, userID, limit, Filters{}, now)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	return s.createSession(ctx, userID, limit, candidates)
}

// Get returns the user's active session with question payloads resolved in
// snapshot order, or nil when no session is active.
func (s *Service) Get(ctx context.Context, userID int32) (*Session, error) {
	session, err := s.findActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return s.toSessionDto(ctx, session)
}

// ListHistory returns the user's past sessions, newest first.
func (s *Service) ListHistory(ctx context.Context, userID int32, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 30
	}
	sessions, err := s.store.ListPracticeSessions(ctx, &store.FindPracticeSession{
		UserID: &userID,
		Limit:  &limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list practice sessions")
	}
	list := make([]*Session, 0, len(sessions))
	for _, session := range sessions {
		// History entries skip question resolution; the list view only
		// needs counters and status.
		list = append(list, newSessionDto(session, nil))
	}
	return list, nil
}

// SubmitAnswer records one outcome for a question within the session,
// updates the question's mastery projection via the scheduler, appends the
// review log entry, and advances the cursor. The session completes exactly
// when the cursor reaches the end of the snapshot.
//
// The submitted question is not required to be the one at the current
// cursor position; clients are expected to keep them in sync but the server
// does not enforce the correspondence.
func (s *Service) SubmitAnswer(ctx context.Context, userID int32, sessionUID, questionUID string, status store.ReviewStatus, note string, durationSec int32) (*SubmitResult, error) {
	if !status.IsValid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "unknown review status %q", status)
	}
	session, err := s.getOwnedSession(ctx, userID, sessionUID)
	if err != nil {
		return nil, err
	}
	if session.Status != store.SessionActive {
		return nil, errors.Wrapf(ErrInvalidState, "session %s is %s", sessionUID, session.Status)
	}
	question, err := s.getOwnedQuestion(ctx, userID, questionUID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if durationSec < 0 {
		durationSec = 0
	}
	transition := NextReview(question.MasteryLevel, status)
	nextReviewTs := now.AddDate(0, 0, int(transition.DelayDays)).Unix()
	if _, err := s.store.SubmitQuestionReview(ctx, &store.UpdateQuestionReview{
		ID:                 question.ID,
		MasteryLevel:       transition.NewLevel,
		NextReviewTs:       nextReviewTs,
		LastReviewedTs:     now.Unix(),
		PracticeCountDelta: 1,
		TimeSpentDelta:     durationSec,
	}, &store.ReviewLog{
		QuestionID: question.ID,
		UserID:     userID,
		Status:     status,
		Note:       note,
		Duration:   durationSec,
		CreatedTs:  now.Unix(),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to submit question review")
	}

	newIndex := session.CurrentIndex + 1
	update := &store.UpdatePracticeSession{
		ID:           session.ID,
		CurrentIndex: &newIndex,
	}
	completed := newIndex >= int32(len(session.QuestionIDs))
	if completed {
		completedStatus := store.SessionCompleted
		completedTs := now.Unix()
		update.Status = &completedStatus
		update.CompletedTs = &completedTs
	}
	if err := s.store.UpdatePracticeSession(ctx, update); err != nil {
		return nil, errors.Wrap(err, "failed to advance session")
	}

	session.CurrentIndex = newIndex
	if completed {
		completedTs := now.Unix()
		session.Status = store.SessionCompleted
		session.CompletedTs = &completedTs
		slog.Debug("practice session completed",
			slog.String("session", session.UID),
			slog.Int("questions", len(session.QuestionIDs)))
	}

	dto, err := s.toSessionDto(ctx, session)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Session: dto, IsCompleted: completed}, nil
}

// Direction selects which way Navigate moves the cursor.
type Direction string

const (
	// DirectionPrev moves the cursor back one question.
	DirectionPrev Direction = "prev"
	// DirectionNext moves the cursor forward one question.
	DirectionNext Direction = "next"
)

// Navigate repositions the cursor without recording an outcome. Movement is
// clamped at both ends and never completes a session: only SubmitAnswer can
// exhaust the snapshot.
func (s *Service) Navigate(ctx context.Context, userID int32, sessionUID string, direction Direction) (*Session, error) {
	session, err := s.getOwnedSession(ctx, userID, sessionUID)
	if err != nil {
		return nil, err
	}
	if session.Status != store.SessionActive {
		return nil, errors.Wrapf(ErrInvalidState, "session %s is %s", sessionUID, session.Status)
	}

	newIndex := session.CurrentIndex
	switch direction {
	case DirectionNext:
		if newIndex < int32(len(session.QuestionIDs))-1 {
			newIndex++
		}
	case DirectionPrev:
		if newIndex > 0 {
			newIndex--
		}
	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "unknown direction %q", direction)
	}

	if newIndex != session.CurrentIndex {
		if err := s.store.UpdatePracticeSession(ctx, &store.UpdatePracticeSession{
			ID:           session.ID,
			CurrentIndex: &newIndex,
		}); err != nil {
			return nil, errors.Wrap(err, "failed to update session cursor")
		}
		session.CurrentIndex = newIndex
	}
	return s.toSessionDto(ctx, session)
}

// JumpTo moves the cursor to the position of the given question within the
// session snapshot.
func (s *Service) JumpTo(ctx context.Context, userID int32, sessionUID, questionUID string) (*Session, error) {
	session, err := s.getOwnedSession(ctx, userID, sessionUID)
	if err != nil {
		return nil, err
	}
	if session.Status != store.SessionActive {
		return nil, errors.Wrapf(ErrInvalidState, "session %s is %s", sessionUID, session.Status)
	}
	question, err := s.getOwnedQuestion(ctx, userID, questionUID)
	if err != nil {
		return nil, err
	}

	position := int32(-1)
	for i, id := range session.QuestionIDs {
		if id == question.ID {
			position = int32(i)
			break
		}
	}
	if position < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "question %s is not in this session", questionUID)
	}

	if position != session.CurrentIndex {
		if err := s.store.UpdatePracticeSession(ctx, &store.UpdatePracticeSession{
			ID:           session.ID,
			CurrentIndex: &position,
		}); err != nil {
			return nil, errors.Wrap(err, "failed to update session cursor")
		}
		session.CurrentIndex = position
	}
	return s.toSessionDto(ctx, session)
}

// UpdateStatus sets the session status unconditionally; ownership is the
// only check. COMPLETED and TOMORROW stamp the completion time.
func (s *Service) UpdateStatus(ctx context.Context, userID int32, sessionUID string, newStatus store.SessionStatus) (*Session, error) {
	if !newStatus.IsValid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "unknown session status %q", newStatus)
	}
	session, err := s.getOwnedSession(ctx, userID, sessionUID)
	if err != nil {
		return nil, err
	}

	update := &store.UpdatePracticeSession{
		ID:     session.ID,
		Status: &newStatus,
	}
	session.Status = newStatus
	if newStatus == store.SessionCompleted || newStatus == store.SessionTomorrow {
		completedTs := s.now().Unix()
		update.CompletedTs = &completedTs
		session.CompletedTs = &completedTs
	}
	if err := s.store.UpdatePracticeSession(ctx, update); err != nil {
		return nil, errors.Wrap(err, "failed to update session status")
	}
	return s.toSessionDto(ctx, session)
}

func (s *Service) findDueQuestions(ctx context.Context, userID int32, limit int32, filters Filters, nowTs int64) ([]*store.Question, error) {
	limitInt := int(limit)
	list, err := s.store.ListQuestions(ctx, &store.FindQuestion{
		CreatorID:         &userID,
		Subjects:          filters.Subjects,
		TagNames:          filters.TagNames,
		MasteryMin:        filters.MasteryMin,
		MasteryMax:        filters.MasteryMax,
		DueBeforeTs:       &nowTs,
		OrderByNextReview: true,
		Limit:             &limitInt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list due questions")
	}
	return list, nil
}

// completeActiveSessions enforces the single-active-session invariant:
// every currently active session is stamped COMPLETED before a new one is
// created.
func (s *Service) completeActiveSessions(ctx context.Context, userID int32, nowTs int64) error {
	activeStatus := store.SessionActive
	actives, err := s.store.ListPracticeSessions(ctx, &store.FindPracticeSession{
		UserID: &userID,
		Status: &activeStatus,
	})
	if err != nil {
		return errors.Wrap(err, "failed to list active sessions")
	}
	for _, active := range actives {
		completedStatus := store.SessionCompleted
		completedTs := nowTs
		if err := s.store.UpdatePracticeSession(ctx, &store.UpdatePracticeSession{
			ID:          active.ID,
			Status:      &completedStatus,
			CompletedTs: &completedTs,
		}); err != nil {
			return errors.Wrap(err, "failed to complete previous session")
		}
	}
	return nil
}

func (s *Service) createSession(ctx context.Context, userID, limit int32, candidates []*store.Question) (*Session, error) {
	// Full shuffle of the capped candidate set; every selected question
	// appears exactly once.
	questionIDs := make([]int32, len(candidates))
	for i, question := range candidates {
		questionIDs[i] = question.ID
	}
	s.rand.Shuffle(len(questionIDs), func(i, j int) {
		questionIDs[i], questionIDs[j] = questionIDs[j], questionIDs[i]
	})

	session, err := s.store.CreatePracticeSession(ctx, &store.PracticeSession{
		UID:          base.GenerateUID(),
		UserID:       userID,
		QuestionIDs:  questionIDs,
		CurrentIndex: 0,
		DailyLimit:   limit,
		Status:       store.SessionActive,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create practice session")
	}

	slog.Info("practice session started",
		slog.String("session", session.UID),
		slog.Int("questions", len(questionIDs)))
	return s.toSessionDto(ctx, session)
}

func (s *Service) findActiveSession(ctx context.Context, userID int32) (*store.PracticeSession, error) {
	activeStatus := store.SessionActive
	one := 1
	sessions, err := s.store.ListPracticeSessions(ctx, &store.FindPracticeSession{
		UserID: &userID,
		Status: &activeStatus,
		Limit:  &one,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find active session")
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

func (s *Service) getOwnedSession(ctx context.Context, userID int32, sessionUID string) (*store.PracticeSession, error) {
	sessions, err := s.store.ListPracticeSessions(ctx, &store.FindPracticeSession{
		UID: &sessionUID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session")
	}
	// Foreign sessions are indistinguishable from missing ones.
	if len(sessions) == 0 || sessions[0].UserID != userID {
		return nil, errors.Wrapf(ErrNotFound, "session %s", sessionUID)
	}
	return sessions[0], nil
}

func (s *Service) getOwnedQuestion(ctx context.Context, userID int32, questionUID string) (*store.Question, error) {
	questions, err := s.store.ListQuestions(ctx, &store.FindQuestion{
		UID:       &questionUID,
		CreatorID: &userID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get question")
	}
	if len(questions) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "question %s", questionUID)
	}
	return questions[0], nil
}

// toSessionDto resolves question payloads in snapshot order. Ids whose
// question has been deleted are skipped silently; the cursor and
// TotalCount keep following the snapshot so deletions never shift
// numbering.
func (s *Service) toSessionDto(ctx context.Context, session *store.PracticeSession) (*Session, error) {
	if len(session.QuestionIDs) == 0 {
		return newSessionDto(session, nil), nil
	}
	questions, err := s.store.ListQuestions(ctx, &store.FindQuestion{
		CreatorID: &session.UserID,
		IDList:    session.QuestionIDs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve session questions")
	}
	index := make(map[int32]*store.Question, len(questions))
	for _, question := range questions {
		index[question.ID] = question
	}
	ordered := make([]*store.Question, 0, len(session.QuestionIDs))
	for _, id := range session.QuestionIDs {
		if question, ok := index[id]; ok {
			ordered = append(ordered, question)
		}
	}
	return newSessionDto(session, ordered), nil
}

func newSessionDto(session *store.PracticeSession, questions []*store.Question) *Session {
	return &Session{
		UID:           session.UID,
		Questions:     questions,
		CurrentIndex:  session.CurrentIndex,
		Status:        session.Status,
		TotalCount:    int32(len(session.QuestionIDs)),
		FinishedCount: session.CurrentIndex,
		DailyLimit:    session.DailyLimit,
		StartedTs:     session.StartedTs,
		CompletedTs:   session.CompletedTs,
	}
}
