package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/store"
)

func (d *DB) CreateReviewLog(ctx context.Context, create *store.ReviewLog) (*store.ReviewLog, error) {
	stmt := `INSERT INTO review_log (question_id, user_id, status, note, duration, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.QuestionID, create.UserID, create.Status, create.Note, create.Duration, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create review log")
	}
	return create, nil
}

func (d *DB) ListReviewLogs(ctx context.Context, find *store.FindReviewLog) ([]*store.ReviewLog, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.QuestionID; v != nil {
		where, args = append(where, "question_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedTsAfter; v != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedTsBefore; v != nil {
		where, args = append(where, "created_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, question_id, user_id, status, note, duration, created_ts
		FROM review_log
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query review logs")
	}
	defer rows.Close()

	list := make([]*store.ReviewLog, 0)
	for rows.Next() {
		var log store.ReviewLog
		if err := rows.Scan(
			&log.ID,
			&log.QuestionID,
			&log.UserID,
			&log.Status,
			&log.Note,
			&log.Duration,
			&log.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan review log")
		}
		list = append(list, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
