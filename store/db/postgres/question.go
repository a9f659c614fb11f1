package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/store"
)

func (d *DB) CreateQuestion(ctx context.Context, create *store.Question) (*store.Question, error) {
	imagesBytes, err := json.Marshal(create.Images)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal images")
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
		return nil, errors.Wrap(err, "failed to create question")
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
		where, args = append(where, "question.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "question.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "question.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.IDList) > 0 {
		list := []string{}
		for _, id := range find.IDList {
			list = append(list, placeholder(len(args)+1))
			args = append(args, id)
		}
		where = append(where, "question.id IN ("+strings.Join(list, ", ")+")")
	}
	if len(find.Subjects) > 0 {
		list := []string{}
		for _, subject := range find.Subjects {
			list = append(list, placeholder(len(args)+1))
			args = append(args, subject)
		}
		where = append(where, "question.subject IN ("+strings.Join(list, ", ")+")")
	}
	if len(find.TagNames) > 0 {
		list := []string{}
		for _, name := range find.TagNames {
			list = append(list, placeholder(len(args)+1))
			args = append(args, name)
		}
		where = append(where, `question.id IN (
			SELECT question_tag.question_id FROM question_tag
			JOIN tag ON tag.id = question_tag.tag_id
			WHERE tag.name IN (`+strings.Join(list, ", ")+`))`)
	}
	if v := find.MasteryMin; v != nil {
		where, args = append(where, "question.mastery_level >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.MasteryMax; v != nil {
		where, args = append(where, "question.mastery_level <= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.DueBeforeTs; v != nil {
		where, args = append(where, "(question.next_review_ts IS NULL OR question.next_review_ts <= "+placeholder(len(args)+1)+")"), append(args, *v)
	}
	if v := find.ContentSearch; v != nil {
		pattern := "%" + *v + "%"
		where = append(where, fmt.Sprintf("(question.content LIKE %s OR question.answer LIKE %s OR question.analysis LIKE %s)",
			placeholder(len(args)+1), placeholder(len(args)+2), placeholder(len(args)+3)))
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
		return nil, errors.Wrap(err, "failed to query questions")
	}
	defer rows.Close()

	list := make([]*store.Question, 0)
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, question)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := d.composeQuestionTags(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func scanQuestion(rows *sql.Rows) (*store.Question, error) {
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
		return nil, errors.Wrap(err, "failed to scan question")
	}

	if err := json.Unmarshal([]byte(images), &question.Images); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal images")
	}
	if nextReviewTs.Valid {
		question.NextReviewTs = &nextReviewTs.Int64
	}
	if lastReviewedTs.Valid {
		question.LastReviewedTs = &lastReviewedTs.Int64
	}
	return &question, nil
}

func (d *DB) UpdateQuestion(ctx context.Context, update *store.UpdateQuestion) error {
	set, args := []string{}, []any{}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Content; v != nil {
		set, args = append(set, "content = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Answer; v != nil {
		set, args = append(set, "answer = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Analysis; v != nil {
		set, args = append(set, "analysis = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Remark; v != nil {
		set, args = append(set, "remark = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Subject; v != nil {
		set, args = append(set, "subject = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Images; v != nil {
		imagesBytes, err := json.Marshal(*v)
		if err != nil {
			return errors.Wrap(err, "failed to marshal images")
		}
		set, args = append(set, "images = "+placeholder(len(args)+1)), append(args, string(imagesBytes))
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(set) > 0 {
		args = append(args, update.ID)
		stmt := `UPDATE question SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return errors.Wrap(err, "failed to update question")
		}
	}
	if update.Tags != nil {
		var creatorID int32
		if err := tx.QueryRowContext(ctx, "SELECT creator_id FROM question WHERE id = $1", update.ID).Scan(&creatorID); err != nil {
			return errors.Wrap(err, "failed to resolve question creator")
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
		SET mastery_level = $1, next_review_ts = $2, last_reviewed_ts = $3,
			practice_count = practice_count + $4, total_time_spent = total_time_spent + $5
		WHERE id = $6`
	result, err := tx.ExecContext(ctx, stmt,
		update.MasteryLevel, update.NextReviewTs, update.LastReviewedTs,
		update.PracticeCountDelta, update.TimeSpentDelta, update.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update question review state")
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
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := tx.QueryRowContext(ctx, logStmt,
		log.QuestionID, log.UserID, log.Status, log.Note, log.Duration, log.CreatedTs,
	).Scan(&log.ID); err != nil {
		return nil, errors.Wrap(err, "failed to append review log")
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

	if _, err := tx.ExecContext(ctx, "DELETE FROM review_log WHERE question_id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete review logs")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM question_tag WHERE question_id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete tag joins")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM question_embedding WHERE question_id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete question embedding")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM question WHERE id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete question")
	}
	return tx.Commit()
}

func (d *DB) replaceQuestionTags(ctx context.Context, tx *sql.Tx, creatorID, questionID int32, tags []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM question_tag WHERE question_id = $1", questionID); err != nil {
		return errors.Wrap(err, "failed to clear tag joins")
	}
	for _, name := range tags {
		var tagID int32
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO tag (creator_id, name) VALUES ($1, $2)
			ON CONFLICT (creator_id, name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, creatorID, name,
		).Scan(&tagID); err != nil {
			return errors.Wrapf(err, "failed to upsert tag %q", name)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO question_tag (question_id, tag_id) VALUES ($1, $2)
			ON CONFLICT (question_id, tag_id) DO NOTHING`, questionID, tagID); err != nil {
			return errors.Wrapf(err, "failed to join tag %q", name)
		}
	}
	return nil
}

func (d *DB) composeQuestionTags(ctx context.Context, list []*store.Question) error {
	if len(list) == 0 {
		return nil
	}
	index := map[int32]*store.Question{}
	holders := []string{}
	args := []any{}
	for _, question := range list {
		index[question.ID] = question
		holders = append(holders, placeholder(len(args)+1))
		args = append(args, question.ID)
	}

	query := `
		SELECT question_tag.question_id, tag.name
		FROM question_tag
		JOIN tag ON tag.id = question_tag.tag_id
		WHERE question_tag.question_id IN (` + strings.Join(holders, ", ") + `)
		ORDER BY tag.name ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to query question tags")
	}
	defer rows.Close()

	for rows.Next() {
		var questionID int32
		var name string
		if err := rows.Scan(&questionID, &name); err != nil {
			return errors.Wrap(err, "failed to scan question tag")
		}
		if question, ok := index[questionID]; ok {
			question.Tags = append(question.Tags, name)
		}
	}
	return rows.Err()
}
