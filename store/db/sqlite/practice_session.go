package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fixitapp/fixit/store"
)

func (d *DB) CreatePracticeSession(ctx context.Context, create *store.PracticeSession) (*store.PracticeSession, error) {
	idsBytes, err := json.Marshal(create.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal question ids: %w", err)
	}

	stmt := `INSERT INTO practice_session (uid, user_id, question_ids, current_index, daily_limit, status)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, started_ts`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.UserID, string(idsBytes), create.CurrentIndex, create.DailyLimit, create.Status,
	).Scan(&create.ID, &create.StartedTs); err != nil {
		return nil, fmt.Errorf("failed to create practice session: %w", err)
	}
	return create, nil
}

func (d *DB) ListPracticeSessions(ctx context.Context, find *store.FindPracticeSession) ([]*store.PracticeSession, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = ?"), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = ?"), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "status = ?"), append(args, *v)
	}

	query := `
		SELECT id, uid, user_id, question_ids, current_index, daily_limit, status, started_ts, completed_ts
		FROM practice_session
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY started_ts DESC, id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query practice sessions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.PracticeSession, 0)
	for rows.Next() {
		var session store.PracticeSession
		var questionIDs string
		var completedTs sql.NullInt64

		if err := rows.Scan(
			&session.ID,
			&session.UID,
			&session.UserID,
			&questionIDs,
			&session.CurrentIndex,
			&session.DailyLimit,
			&session.Status,
			&session.StartedTs,
			&completedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan practice session: %w", err)
		}

		if err := json.Unmarshal([]byte(questionIDs), &session.QuestionIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal question ids: %w", err)
		}
		if completedTs.Valid {
			session.CompletedTs = &completedTs.Int64
		}
		list = append(list, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdatePracticeSession(ctx context.Context, update *store.UpdatePracticeSession) error {
	set, args := []string{}, []any{}
	if v := update.CurrentIndex; v != nil {
		set, args = append(set, "current_index = ?"), append(args, *v)
	}
	if v := update.Status; v != nil {
		set, args = append(set, "status = ?"), append(args, *v)
	}
	if v := update.CompletedTs; v != nil {
		set, args = append(set, "completed_ts = ?"), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, update.ID)

	stmt := `UPDATE practice_session SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update practice session: %w", err)
	}
	return nil
}
