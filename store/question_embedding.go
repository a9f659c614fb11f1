package store

import "context"

// QuestionEmbedding is the vector embedding of a question's content, used
// for similar-question search. Only the postgres driver supports vector
// storage; the sqlite driver returns ErrVectorUnsupported.
type QuestionEmbedding struct {
	ID         int32
	QuestionID int32
	Embedding  []float32
	Model      string
	CreatedTs  int64
	UpdatedTs  int64
}

// FindQuestionEmbedding is the find condition for question embeddings.
type FindQuestionEmbedding struct {
	QuestionID *int32
	Model      *string
}

// QuestionWithScore is a vector search result with its similarity score.
type QuestionWithScore struct {
	Question *Question
	// Score is cosine similarity in [0,1], higher is more similar.
	Score float32
}

// UpsertQuestionEmbedding inserts or updates a question embedding.
func (s *Store) UpsertQuestionEmbedding(ctx context.Context, embedding *QuestionEmbedding) (*QuestionEmbedding, error) {
	return s.driver.UpsertQuestionEmbedding(ctx, embedding)
}

// GetQuestionEmbedding gets the embedding of a specific question.
func (s *Store) GetQuestionEmbedding(ctx context.Context, questionID int32, model string) (*QuestionEmbedding, error) {
	list, err := s.driver.ListQuestionEmbeddings(ctx, &FindQuestionEmbedding{
		QuestionID: &questionID,
		Model:      &model,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListQuestionEmbeddings lists question embeddings.
func (s *Store) ListQuestionEmbeddings(ctx context.Context, find *FindQuestionEmbedding) ([]*QuestionEmbedding, error) {
	return s.driver.ListQuestionEmbeddings(ctx, find)
}

// SearchQuestionsByVector performs similarity search over a user's questions.
func (s *Store) SearchQuestionsByVector(ctx context.Context, userID int32, vector []float32, limit int) ([]*QuestionWithScore, error) {
	return s.driver.SearchQuestionsByVector(ctx, userID, vector, limit)
}
