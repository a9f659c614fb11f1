package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/store"
)

// UpsertQuestionEmbedding inserts or updates a question embedding.
func (d *DB) UpsertQuestionEmbedding(ctx context.Context, embedding *store.QuestionEmbedding) (*store.QuestionEmbedding, error) {
	stmt := `
		INSERT INTO question_embedding (question_id, embedding, model, created_ts, updated_ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (question_id)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts`

	vector := pgvector.NewVector(embedding.Embedding)
	if err := d.db.QueryRowContext(ctx, stmt,
		embedding.QuestionID,
		vector,
		embedding.Model,
		embedding.CreatedTs,
		embedding.UpdatedTs,
	).Scan(&embedding.ID, &embedding.CreatedTs, &embedding.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert question embedding")
	}
	return embedding, nil
}

// ListQuestionEmbeddings lists question embeddings.
func (d *DB) ListQuestionEmbeddings(ctx context.Context, find *store.FindQuestionEmbedding) ([]*store.QuestionEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.QuestionID != nil {
		where, args = append(where, "question_id = "+placeholder(len(args)+1)), append(args, *find.QuestionID)
	}
	if find.Model != nil {
		where, args = append(where, "model = "+placeholder(len(args)+1)), append(args, *find.Model)
	}

	query := `
		SELECT id, question_id, embedding, model, created_ts, updated_ts
		FROM question_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list question embeddings")
	}
	defer rows.Close()

	list := []*store.QuestionEmbedding{}
	for rows.Next() {
		var embedding store.QuestionEmbedding
		var vector pgvector.Vector
		if err := rows.Scan(
			&embedding.ID,
			&embedding.QuestionID,
			&vector,
			&embedding.Model,
			&embedding.CreatedTs,
			&embedding.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan question embedding")
		}
		embedding.Embedding = vector.Slice()
		list = append(list, &embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// SearchQuestionsByVector performs cosine similarity search over a user's
// questions. The <=> operator computes cosine distance, so ordering by it
// ascending returns the most similar rows first.
func (d *DB) SearchQuestionsByVector(ctx context.Context, userID int32, vector []float32, limit int) ([]*store.QuestionWithScore, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT
			q.id, q.uid, q.creator_id, q.created_ts, q.updated_ts,
			q.content, q.answer, q.analysis, q.remark, q.subject, q.images,
			q.mastery_level, q.next_review_ts, q.last_reviewed_ts,
			q.practice_count, q.total_time_spent,
			1 - (e.embedding <=> $1) AS score
		FROM question q
		INNER JOIN question_embedding e ON q.id = e.question_id
		WHERE q.creator_id = $2
		ORDER BY e.embedding <=> $1
		LIMIT $3`

	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(vector), userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search questions by vector")
	}
	defer rows.Close()

	list := []*store.QuestionWithScore{}
	for rows.Next() {
		question, score, err := scanQuestionWithScore(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, &store.QuestionWithScore{Question: question, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func scanQuestionWithScore(rows *sql.Rows) (*store.Question, float32, error) {
	var question store.Question
	var images string
	var nextReviewTs, lastReviewedTs sql.NullInt64
	var score float32

	if err := rows.Scan(
		&question.ID,
		&question.UID,
		&question.CreatorID,
		&question.CreatedTs,
		&question.UpdatedTs,
		&question.Content,
		&question.Answer,
		&question.Analysis,
		&question.Remark,
		&question.Subject,
		&images,
		&question.MasteryLevel,
		&nextReviewTs,
		&lastReviewedTs,
		&question.PracticeCount,
		&question.TotalTimeSpent,
		&score,
	); err != nil {
		return nil, 0, errors.Wrap(err, "failed to scan question with score")
	}

	if err := json.Unmarshal([]byte(images), &question.Images); err != nil {
		return nil, 0, errors.Wrap(err, "failed to unmarshal images")
	}
	if nextReviewTs.Valid {
		question.NextReviewTs = &nextReviewTs.Int64
	}
	if lastReviewedTs.Valid {
		question.LastReviewedTs = &lastReviewedTs.Int64
	}
	return &question, score, nil
}
