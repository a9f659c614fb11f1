package sqlite

import (
	"context"

	"github.com/fixitapp/fixit/store"
)

// SQLite has no vector type; similar-question search requires postgres.

func (d *DB) UpsertQuestionEmbedding(context.Context, *store.QuestionEmbedding) (*store.QuestionEmbedding, error) {
	return nil, store.ErrVectorUnsupported
}

func (d *DB) ListQuestionEmbeddings(context.Context, *store.FindQuestionEmbedding) ([]*store.QuestionEmbedding, error) {
	return nil, store.ErrVectorUnsupported
}

func (d *DB) SearchQuestionsByVector(context.Context, int32, []float32, int) ([]*store.QuestionWithScore, error) {
	return nil, store.ErrVectorUnsupported
}
