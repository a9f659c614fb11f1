package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/store"
)

func (d *DB) UpsertTag(ctx context.Context, upsert *store.Tag) (*store.Tag, error) {
	stmt := `INSERT INTO tag (creator_id, name)
		VALUES ($1, $2)
		ON CONFLICT (creator_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_ts`
	if err := d.db.QueryRowContext(ctx, stmt, upsert.CreatorID, upsert.Name).Scan(
		&upsert.ID, &upsert.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert tag")
	}
	return upsert, nil
}

func (d *DB) ListTags(ctx context.Context, find *store.FindTag) ([]*store.Tag, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "tag.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "tag.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Name; v != nil {
		where, args = append(where, "tag.name = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT tag.id, tag.creator_id, tag.name, tag.created_ts,
			COUNT(question_tag.question_id) AS question_count
		FROM tag
		LEFT JOIN question_tag ON question_tag.tag_id = tag.id
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY tag.id
		ORDER BY tag.name ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query tags")
	}
	defer rows.Close()

	list := make([]*store.Tag, 0)
	for rows.Next() {
		var tag store.Tag
		if err := rows.Scan(
			&tag.ID,
			&tag.CreatorID,
			&tag.Name,
			&tag.CreatedTs,
			&tag.QuestionCount,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan tag")
		}
		list = append(list, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteTag(ctx context.Context, delete *store.DeleteTag) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM question_tag WHERE tag_id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete tag joins")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tag WHERE id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete tag")
	}
	return tx.Commit()
}
