// Package question implements the mistake-notebook CRUD operations on top
// of the store, including lazy tag creation, filter expressions, bulk
// import, and similar-question search.
package question

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/internal/base"
	"github.com/fixitapp/fixit/internal/filter"
	"github.com/fixitapp/fixit/store"
)

// Sentinel error kinds mapped to HTTP statuses by the API layer.
var (
	ErrNotFound        = errors.New("question not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

const maxContentLength = 64 * 1024

// Embedder generates content vectors, typically backed by the AI plugin.
// A nil Embedder disables the vector path.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for store operations needed by the question service.
type Store interface {
	CreateQuestion(ctx context.Context, create *store.Question) (*store.Question, error)
	ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error)
	UpdateQuestion(ctx context.Context, update *store.UpdateQuestion) error
	DeleteQuestion(ctx context.Context, delete *store.DeleteQuestion) error
	UpsertTag(ctx context.Context, upsert *store.Tag) (*store.Tag, error)
	ListTags(ctx context.Context, find *store.FindTag) ([]*store.Tag, error)
	DeleteTag(ctx context.Context, delete *store.DeleteTag) error
	UpsertQuestionEmbedding(ctx context.Context, embedding *store.QuestionEmbedding) (*store.QuestionEmbedding, error)
	SearchQuestionsByVector(ctx context.Context, userID int32, vector []float32, limit int) ([]*store.QuestionWithScore, error)
}

// Service provides question operations.
type Service struct {
	store    Store
	embedder Embedder
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEmbedder enables embedding upkeep and vector search.
func WithEmbedder(e Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// WithClock injects a fixed timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new question service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries the user-settable fields of a new question.
type CreateRequest struct {
	Content  string   `json:"content"`
	Answer   string   `json:"answer"`
	Analysis string   `json:"analysis"`
	Remark   string   `json:"remark"`
	Subject  string   `json:"subject"`
	Images   []string `json:"images"`
	Tags     []string `json:"tags"`
}

func (r *CreateRequest) validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return errors.Wrap(ErrInvalidArgument, "content is required")
	}
	if len(r.Content) > maxContentLength {
		return errors.Wrapf(ErrInvalidArgument, "content exceeds %d bytes", maxContentLength)
	}
	return nil
}

// Create stores a new question. Referenced tags are created lazily and the
// content embedding is refreshed best-effort.
func (s *Service) Create(ctx context.Context, userID int32, req *CreateRequest) (*store.Question, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	tags := normalizeTags(req.Tags)
	if err := s.upsertTags(ctx, userID, tags); err != nil {
		return nil, err
	}

	question, err := s.store.CreateQuestion(ctx, &store.Question{
		UID:       base.GenerateUID(),
		CreatorID: userID,
		Content:   req.Content,
		Answer:    req.Answer,
		Analysis:  req.Analysis,
		Remark:    req.Remark,
		Subject:   req.Subject,
		Images:    req.Images,
		Tags:      tags,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create question")
	}

	s.refreshEmbedding(ctx, question)
	return question, nil
}

// Get returns the question by uid, scoped to the owner.
func (s *Service) Get(ctx context.Context, userID int32, uid string) (*store.Question, error) {
	questions, err := s.store.ListQuestions(ctx, &store.FindQuestion{
		UID:       &uid,
		CreatorID: &userID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get question")
	}
	if len(questions) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "question %s", uid)
	}
	return questions[0], nil
}

// ListRequest narrows and pages the question list.
type ListRequest struct {
	// Filter is a CEL expression, e.g. `subject == "math" && mastery_level <= 2`.
	Filter string
	// DueOnly keeps questions due for review as of now.
	DueOnly bool
	Limit   int
	Offset  int
}

// List returns the user's questions, newest first unless due-ordered.
func (s *Service) List(ctx context.Context, userID int32, req *ListRequest) ([]*store.Question, error) {
	find := &store.FindQuestion{CreatorID: &userID}
	if err := filter.Apply(req.Filter, find); err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}
	if req.DueOnly {
		nowTs := s.now().Unix()
		find.DueBeforeTs = &nowTs
		find.OrderByNextReview = true
	}
	if req.Limit > 0 {
		find.Limit = &req.Limit
		if req.Offset > 0 {
			find.Offset = &req.Offset
		}
	}

	questions, err := s.store.ListQuestions(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list questions")
	}
	return questions, nil
}

// UpdateRequest carries the updatable fields; nil means keep.
type UpdateRequest struct {
	Content  *string   `json:"content"`
	Answer   *string   `json:"answer"`
	Analysis *string   `json:"analysis"`
	Remark   *string   `json:"remark"`
	Subject  *string   `json:"subject"`
	Images   *[]string `json:"images"`
	Tags     *[]string `json:"tags"`
}

// Update patches the question's content fields. Mastery fields are owned by
// the review flow and cannot be set here.
func (s *Service) Update(ctx context.Context, userID int32, uid string, req *UpdateRequest) (*store.Question, error) {
	question, err := s.Get(ctx, userID, uid)
	if err != nil {
		return nil, err
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, errors.Wrap(ErrInvalidArgument, "content is required")
		}
		if len(*req.Content) > maxContentLength {
			return nil, errors.Wrapf(ErrInvalidArgument, "content exceeds %d bytes", maxContentLength)
		}
	}

	update := &store.UpdateQuestion{
		ID:       question.ID,
		Content:  req.Content,
		Answer:   req.Answer,
		Analysis: req.Analysis,
		Remark:   req.Remark,
		Subject:  req.Subject,
		Images:   req.Images,
	}
	nowTs := s.now().Unix()
	update.UpdatedTs = &nowTs
	if req.Tags != nil {
		tags := normalizeTags(*req.Tags)
		if err := s.upsertTags(ctx, userID, tags); err != nil {
			return nil, err
		}
		update.Tags = &tags
	}
	if err := s.store.UpdateQuestion(ctx, update); err != nil {
		return nil, errors.Wrap(err, "failed to update question")
	}

	updated, err := s.Get(ctx, userID, uid)
	if err != nil {
		return nil, err
	}
	if req.Content != nil {
		s.refreshEmbedding(ctx, updated)
	}
	return updated, nil
}

// Delete removes the question; review logs, tag joins and embeddings go
// with it.
func (s *Service) Delete(ctx context.Context, userID int32, uid string) error {
	question, err := s.Get(ctx, userID, uid)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, &store.DeleteQuestion{ID: question.ID}); err != nil {
		return errors.Wrap(err, "failed to delete question")
	}
	return nil
}

// ListTags returns the user's tags with question counts.
func (s *Service) ListTags(ctx context.Context, userID int32) ([]*store.Tag, error) {
	tags, err := s.store.ListTags(ctx, &store.FindTag{CreatorID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tags")
	}
	return tags, nil
}

// DeleteTag removes one of the user's tags.
func (s *Service) DeleteTag(ctx context.Context, userID int32, name string) error {
	tags, err := s.store.ListTags(ctx, &store.FindTag{
		CreatorID: &userID,
		Name:      &name,
	})
	if err != nil {
		return errors.Wrap(err, "failed to find tag")
	}
	if len(tags) == 0 {
		return errors.Wrapf(ErrNotFound, "tag %s", name)
	}
	if err := s.store.DeleteTag(ctx, &store.DeleteTag{ID: tags[0].ID}); err != nil {
		return errors.Wrap(err, "failed to delete tag")
	}
	return nil
}

func (s *Service) upsertTags(ctx context.Context, userID int32, tags []string) error {
	for _, name := range tags {
		if _, err := s.store.UpsertTag(ctx, &store.Tag{
			CreatorID: userID,
			Name:      name,
		}); err != nil {
			return errors.Wrapf(err, "failed to upsert tag %s", name)
		}
	}
	return nil
}

// refreshEmbedding updates the content vector without failing the request;
// a missing embedding only degrades similar-question search.
func (s *Service) refreshEmbedding(ctx context.Context, question *store.Question) {
	if s.embedder == nil {
		return
	}
	vector, err := s.embedder.Embed(ctx, question.Content)
	if err != nil {
		slog.Warn("failed to embed question", slog.String("question", question.UID), slog.Any("err", err))
		return
	}
	if _, err := s.store.UpsertQuestionEmbedding(ctx, &store.QuestionEmbedding{
		QuestionID: question.ID,
		Embedding:  vector,
	}); err != nil && !errors.Is(err, store.ErrVectorUnsupported) {
		slog.Warn("failed to store question embedding", slog.String("question", question.UID), slog.Any("err", err))
	}
}

// normalizeTags lowercases, trims, and deduplicates while keeping order.
func normalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimSpace(tag))
		name = strings.TrimPrefix(name, "#")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}
	return result
}
