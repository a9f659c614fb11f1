package question

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixitapp/fixit/store"
)

// mockStore is an in-memory implementation of the Store interface.
type mockStore struct {
	questions  []*store.Question
	tags       []*store.Tag
	embeddings map[int32][]float32
	nextID     int32

	// vectorSupported toggles the pgvector path.
	vectorSupported bool
	vectorHits      []*store.QuestionWithScore
}

func newMockStore() *mockStore {
	return &mockStore{nextID: 1, embeddings: make(map[int32][]float32)}
}

func (m *mockStore) CreateQuestion(_ context.Context, create *store.Question) (*store.Question, error) {
	create.ID = m.nextID
	m.nextID++
	m.questions = append(m.questions, create)
	return create, nil
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
		if len(find.TagNames) > 0 {
			found := false
			for _, want := range find.TagNames {
				for _, have := range q.Tags {
					if have == want {
						found = true
						break
					}
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

func (m *mockStore) UpdateQuestion(_ context.Context, update *store.UpdateQuestion) error {
	for _, q := range m.questions {
		if q.ID != update.ID {
			continue
		}
		if update.Content != nil {
			q.Content = *update.Content
		}
		if update.Answer != nil {
			q.Answer = *update.Answer
		}
		if update.Analysis != nil {
			q.Analysis = *update.Analysis
		}
		if update.Remark != nil {
			q.Remark = *update.Remark
		}
		if update.Subject != nil {
			q.Subject = *update.Subject
		}
		if update.Images != nil {
			q.Images = *update.Images
		}
		if update.Tags != nil {
			q.Tags = *update.Tags
		}
		if update.UpdatedTs != nil {
			q.UpdatedTs = *update.UpdatedTs
		}
		break
	}
	return nil
}

func (m *mockStore) DeleteQuestion(_ context.Context, delete *store.DeleteQuestion) error {
	kept := m.questions[:0]
	for _, q := range m.questions {
		if q.ID != delete.ID {
			kept = append(kept, q)
		}
	}
	m.questions = kept
	return nil
}

func (m *mockStore) UpsertTag(_ context.Context, upsert *store.Tag) (*store.Tag, error) {
	for _, tag := range m.tags {
		if tag.CreatorID == upsert.CreatorID && tag.Name == upsert.Name {
			return tag, nil
		}
	}
	upsert.ID = m.nextID
	m.nextID++
	m.tags = append(m.tags, upsert)
	return upsert, nil
}

func (m *mockStore) ListTags(_ context.Context, find *store.FindTag) ([]*store.Tag, error) {
	result := make([]*store.Tag, 0)
	for _, tag := range m.tags {
		if find.CreatorID != nil && tag.CreatorID != *find.CreatorID {
			continue
		}
		if find.Name != nil && tag.Name != *find.Name {
			continue
		}
		result = append(result, tag)
	}
	return result, nil
}

func (m *mockStore) DeleteTag(_ context.Context, delete *store.DeleteTag) error {
	kept := m.tags[:0]
	for _, tag := range m.tags {
		if tag.ID != delete.ID {
			kept = append(kept, tag)
		}
	}
	m.tags = kept
	return nil
}

func (m *mockStore) UpsertQuestionEmbedding(_ context.Context, embedding *store.QuestionEmbedding) (*store.QuestionEmbedding, error) {
	if !m.vectorSupported {
		return nil, store.ErrVectorUnsupported
	}
	m.embeddings[embedding.QuestionID] = embedding.Embedding
	return embedding, nil
}

func (m *mockStore) SearchQuestionsByVector(_ context.Context, _ int32, _ []float32, limit int) ([]*store.QuestionWithScore, error) {
	if !m.vectorSupported {
		return nil, store.ErrVectorUnsupported
	}
	hits := m.vectorHits
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct{ vector []float32 }

func (e *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return e.vector, nil
}

func TestCreateQuestion(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	svc := NewService(m)

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Content: "What is 2+2?",
		Answer:  "4",
		Subject: "math",
		Tags:    []string{" Arithmetic", "#basics", "arithmetic", ""},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, int32(1), created.CreatorID)
	assert.Equal(t, []string{"arithmetic", "basics"}, created.Tags)

	// Tags were created lazily, once each.
	require.Len(t, m.tags, 2)
	assert.Equal(t, "arithmetic", m.tags[0].Name)
	assert.Equal(t, "basics", m.tags[1].Name)

	_, err = svc.Create(ctx, 1, &CreateRequest{Content: "   "})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetQuestionScopedToOwner(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	svc := NewService(m)

	created, err := svc.Create(ctx, 1, &CreateRequest{Content: "owned"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, 1, created.UID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Get(ctx, 2, created.UID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListQuestionsWithFilter(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	svc := NewService(m)

	_, err := svc.Create(ctx, 1, &CreateRequest{Content: "q1", Subject: "math", Tags: []string{"geometry"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, &CreateRequest{Content: "q2", Subject: "physics"})
	require.NoError(t, err)

	list, err := svc.List(ctx, 1, &ListRequest{Filter: `subject == "math"`})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "q1", list[0].Content)

	list, err = svc.List(ctx, 1, &ListRequest{Filter: `tag in ["geometry"]`})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.List(ctx, 1, &ListRequest{Filter: `bogus == 1`})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestListQuestionsDueOnly(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	svc := NewService(m, WithClock(func() time.Time { return now }))

	fresh, err := svc.Create(ctx, 1, &CreateRequest{Content: "never reviewed"})
	require.NoError(t, err)
	later, err := svc.Create(ctx, 1, &CreateRequest{Content: "scheduled later"})
	require.NoError(t, err)
	futureTs := now.AddDate(0, 0, 5).Unix()
	later.NextReviewTs = &futureTs

	list, err := svc.List(ctx, 1, &ListRequest{DueOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)
}

func TestUpdateQuestion(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	svc := NewService(m)

	created, err := svc.Create(ctx, 1, &CreateRequest{Content: "before", Tags: []string{"old"}})
	require.NoError(t, err)

	content := "after"
	tags := []string{"New"}
	updated, err := svc.Update(ctx, 1, created.UID, &UpdateRequest{
		Content: &content,
		Tags:    &tags,
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Content)
	assert.Equal(t, []string{"new"}, updated.Tags)

	empty := " "
	_, err = svc.Update(ctx, 1, created.UID, &UpdateRequest{Content: &empty})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Update(ctx, 2, created.UID, &UpdateRequest{Content: &content})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteQuestion(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	svc := NewService(m)

	created, err := svc.Create(ctx, 1, &CreateRequest{Content: "doomed"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, created.UID))
	_, err = svc.Get(ctx, 1, created.UID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.Delete(ctx, 1, created.UID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTag(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	svc := NewService(m)

	_, err := svc.Create(ctx, 1, &CreateRequest{Content: "q", Tags: []string{"keep", "drop"}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTag(ctx, 1, "drop"))
	tags, err := svc.ListTags(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "keep", tags[0].Name)

	err = svc.DeleteTag(ctx, 1, "drop")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportCollectsErrors(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	svc := NewService(m)

	result, err := svc.Import(ctx, 1, []*CreateRequest{
		{Content: "good one"},
		{Content: ""},
		{Content: "good two"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Len(t, m.questions, 2)
}
