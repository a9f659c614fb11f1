package question

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixitapp/fixit/store"
)

func TestFindSimilarByVector(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	m.vectorSupported = true
	svc := NewService(m, WithEmbedder(&fixedEmbedder{vector: []float32{1, 0, 0}}))

	current, err := svc.Create(ctx, 1, &CreateRequest{Content: "solve the quadratic equation"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, 1, &CreateRequest{Content: "factor the quadratic expression"})
	require.NoError(t, err)

	// The store ranks the question itself first, as pgvector would.
	m.vectorHits = []*store.QuestionWithScore{
		{Question: current, Score: 1.0},
		{Question: other, Score: 0.9},
	}

	results, err := svc.FindSimilar(ctx, 1, current.UID, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, other.ID, results[0].Question.ID)
	assert.InDelta(t, 0.9, results[0].Score, 1e-6)
}

func TestFindSimilarKeywordFallback(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	// Vector search unsupported: the sqlite path.
	svc := NewService(m, WithEmbedder(&fixedEmbedder{vector: []float32{1, 0, 0}}))

	current, err := svc.Create(ctx, 1, &CreateRequest{Content: "triangle angle sum proof", Subject: "math"})
	require.NoError(t, err)
	near, err := svc.Create(ctx, 1, &CreateRequest{Content: "triangle angle bisector proof", Subject: "math"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, &CreateRequest{Content: "photosynthesis light reaction", Subject: "biology"})
	require.NoError(t, err)

	results, err := svc.FindSimilar(ctx, 1, current.UID, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, near.ID, results[0].Question.ID)
	for _, r := range results {
		assert.NotEqual(t, current.ID, r.Question.ID)
	}
}

func TestFindSimilarWithoutEmbedder(t *testing.T) {
	ctx := context.Background()
	m := newMockStore()
	svc := NewService(m)

	current, err := svc.Create(ctx, 1, &CreateRequest{Content: "binary search complexity"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, &CreateRequest{Content: "binary search implementation"})
	require.NoError(t, err)

	results, err := svc.FindSimilar(ctx, 1, current.UID, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestWordSetAndJaccard(t *testing.T) {
	a := wordSet("The quick brown fox")
	assert.True(t, a["quick"])
	assert.True(t, a["the"])
	assert.False(t, a["a"]) // single-rune words are dropped

	b := wordSet("quick brown dog")
	score := jaccard(a, b)
	assert.Greater(t, score, float32(0))
	assert.Less(t, score, float32(1))

	assert.Zero(t, jaccard(a, map[string]bool{}))
}
