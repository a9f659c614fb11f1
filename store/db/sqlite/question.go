package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fixitapp/fixit/store"
)

func (d *DB) CreateQuestion(ctx context.Context, create *store.Question) (*store.Question, error) {
	imagesBytes, err := json.Marshal(create.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal images: %w", err)
	}

	fields := []string{"uid", "creator_id", "content", "answer", "analysis", "remark", "subject", "images", "mastery_level"}
	args := []any{create.UID, create.CreatorID, create.Content, create.Answer, create.Analysis, create.Remark, create.Subject, string(imagesBytes), create.MasteryLevel}

	stmt := `INSERT INTO question (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, created_ts, updated_ts`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	if len(create.Tags) > 0 {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()
		if err := d.replaceQuestionTags(ctx, tx, create.CreatorID, create.ID, create.Tags); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
	}
	return create, nil
}

func (d *DB) ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "question.id = ?"), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "question.uid = ?"), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "question.creator_id = ?"), append(args, *v)
	}
	if len(find.IDList) > 0 {
		list := []any{}
		for _, id := range find.IDList {
			list = append(list, id)
		}
		where, args = append(where, "question.id IN ("+placeholders(len(list))+")"), append(args, list...)
	}
	if len(find.Subjects) > 0 {
		list := []any{}
		for _, subject := range find.Subjects {
			list = append(list, subject)
		}
		where, args = append(where, "question.subject IN ("+placeholders(len(list))+")"), append(args, list...)
	}
	if len(find.TagNames) > 0 {
		list := []any{}
		for _, name := range find.TagNames {
			list = append(list, name)
		}
		where = append(where, `question.id IN (
			SELECT question_tag.question_id FROM question_tag
			JOIN tag ON tag.id = question_tag.tag_id
			WHERE tag.name IN (`+placeholders(len(list))+`))`)
		args = append(args, list...)
	}
	if v := find.MasteryMin; v != nil {
		where, args = append(where, "question.mastery_level >= ?"), append(args, *v)
	}
	if v := find.MasteryMax; v != nil {
		where, args = append(where, "question.mastery_level <= ?"), append(args, *v)
	}
	if v := find.DueBeforeTs; v != nil {
		where, args = append(where, "(question.next_review_ts IS NULL OR question.next_review_ts <= ?)"), append(args, *v)
	}
	if v := find.ContentSearch; v != nil {
		pattern := "%" + *v + "%"
		where = append(where, "(question.content LIKE ? OR question.answer LIKE ? OR question.analysis LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}

	orderBy := "ORDER BY question.created_ts DESC, question.id DESC"
	if find.OrderByNextReview {
		orderBy = "ORDER BY question.next_review_ts ASC NULLS FIRST, question.created_ts ASC"
	}

	query := `
		SELECT
			id, uid, creator_id, created_ts, updated_ts,
			content, answer, analysis, remark, subject, images,
			mastery_level, next_review_ts, last_reviewed_ts,
			practice_count, total_time_spent
		FROM question
		WHERE ` + strings.Join(where, " AND ") + ` ` + orderBy
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Question, 0)
	for rows.Next() {
		var question store.Question
		var images string
		var nextReviewTs, lastReviewedTs sql.NullInt64

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
		); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}

		if err := json.Unmarshal([]byte(images), &question.Images); err != nil {
			return nil, fmt.Errorf("failed to unmarshal images: %w", err)
		}
		if nextReviewTs.Valid {
			question.NextReviewTs = &nextReviewTs.Int64
		}
		if lastReviewedTs.Valid {
			question.LastReviewedTs = &lastReviewedTs.Int64
		}
		list = append(list, &question)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := d.composeQuestionTags(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateQuestion(ctx context.Context, update *store.UpdateQuestion) error {
	set, args := []string{}, []any{}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *v)
	}
	if v := update.Content; v != nil {
		set, args = append(set, "content = ?"), append(args, *v)
	}
	if v := update.Answer; v != nil {
		set, args = append(set, "answer = ?"), append(args, *v)
	}
	if v := update.Analysis; v != nil {
		set, args = append(set, "analysis = ?"), append(args, *v)
	}
	if v := update.Remark; v != nil {
		set, args = append(set, "remark = ?"), append(args, *v)
	}
	if v := update.Subject; v != nil {
		set, args = append(set, "subject = ?"), append(args, *v)
	}
	if v := update.Images; v != nil {
		imagesBytes, err := json.Marshal(*v)
		if err != nil {
			return fmt.Errorf("failed to marshal images: %w", err)
		}
		set, args = append(set, "images = ?"), append(args, string(imagesBytes))
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(set) > 0 {
		args = append(args, update.ID)
		stmt := `UPDATE question SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to update question: %w", err)
		}
	}
	if update.Tags != nil {
		var creatorID int32
		if err := tx.QueryRowContext(ctx, "SELECT creator_id FROM question WHERE id = ?", update.ID).Scan(&creatorID); err != nil {
			return fmt.Errorf("failed to resolve question creator: %w", err)
		}
		if err := d.replaceQuestionTags(ctx, tx, creatorID, update.ID, *update.Tags); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) SubmitQuestionReview(ctx context.Context, update *store.UpdateQuestionReview, log *store.ReviewLog) (*store.ReviewLog, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt := `
		UPDATE question
		SET mastery_level = ?, next_review_ts = ?, last_reviewed_ts = ?,
			practice_count = practice_count + ?, total_time_spent = total_time_spent + ?
		WHERE id = ?`
	result, err := tx.ExecContext(ctx, stmt,
		update.MasteryLevel, update.NextReviewTs, update.LastReviewedTs,
		update.PracticeCountDelta, update.TimeSpentDelta, update.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update question review state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}

	// The log append runs last so a failure above leaves no orphaned entry.
	logStmt := `INSERT INTO review_log (question_id, user_id, status, note, duration, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := tx.QueryRowContext(ctx, logStmt,
		log.QuestionID, log.UserID, log.Status, log.Note, log.Duration, log.CreatedTs,
	).Scan(&log.ID); err != nil {
		return nil, fmt.Errorf("failed to append review log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return log, nil
}

func (d *DB) DeleteQuestion(ctx context.Context, delete *store.DeleteQuestion) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM review_log WHERE question_id = ?", delete.ID); err != nil {
		return fmt.Errorf("failed to delete review logs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM question_tag WHERE question_id = ?", delete.ID); err != nil {
		return fmt.Errorf("failed to delete tag joins: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM question WHERE id = ?", delete.ID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return tx.Commit()
}

// replaceQuestionTags rewrites the tag joins for a question, creating
// missing tags lazily.
func (d *DB) replaceQuestionTags(ctx context.Context, tx *sql.Tx, creatorID, questionID int32, tags []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM question_tag WHERE question_id = ?", questionID); err != nil {
		return fmt.Errorf("failed to clear tag joins: %w", err)
	}
	for _, name := range tags {
		var tagID int32
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO tag (creator_id, name) VALUES (?, ?)
			ON CONFLICT (creator_id, name) DO UPDATE SET name = excluded.name
			RETURNING id`, creatorID, name,
		).Scan(&tagID); err != nil {
			return fmt.Errorf("failed to upsert tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO question_tag (question_id, tag_id) VALUES (?, ?)
			ON CONFLICT (question_id, tag_id) DO NOTHING`, questionID, tagID); err != nil {
			return fmt.Errorf("failed to join tag %q: %w", name, err)
		}
	}
	return nil
}

// composeQuestionTags fills the Tags field for the listed questions with a
// single join query.
func (d *DB) composeQuestionTags(ctx context.Context, list []*store.Question) error {
	if len(list) == 0 {
		return nil
	}
	index := map[int32]*store.Question{}
	ids := []any{}
	for _, question := range list {
		index[question.ID] = question
		ids = append(ids, question.ID)
	}

	query := `
		SELECT question_tag.question_id, tag.name
		FROM question_tag
		JOIN tag ON tag.id = question_tag.tag_id
		WHERE question_tag.question_id IN (` + placeholders(len(ids)) + `)
		ORDER BY tag.name ASC`
	rows, err := d.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("failed to query question tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var questionID int32
		var name string
		if err := rows.Scan(&questionID, &name); err != nil {
			return fmt.Errorf("failed to scan question tag: %w", err)
		}
		if question, ok := index[questionID]; ok {
			question.Tags = append(question.Tags, name)
		}
	}
	return rows.Err()
}
