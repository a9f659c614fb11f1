package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/store"
)

func (d *DB) CreateAttachment(ctx context.Context, create *store.Attachment) (*store.Attachment, error) {
	stmt := `INSERT INTO attachment (uid, creator_id, filename, type, size, file_path, thumbnail_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_ts`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.CreatorID, create.Filename, create.Type, create.Size, create.FilePath, create.ThumbnailPath,
	).Scan(&create.ID, &create.CreatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to create attachment")
	}
	return create, nil
}

func (d *DB) ListAttachments(ctx context.Context, find *store.FindAttachment) ([]*store.Attachment, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.UIDList) > 0 {
		list := []string{}
		for _, uid := range find.UIDList {
			list = append(list, placeholder(len(args)+1))
			args = append(args, uid)
		}
		where = append(where, "uid IN ("+strings.Join(list, ", ")+")")
	}

	query := `
		SELECT id, uid, creator_id, created_ts, filename, type, size, file_path, thumbnail_path
		FROM attachment
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
		return nil, errors.Wrap(err, "failed to query attachments")
	}
	defer rows.Close()

	list := make([]*store.Attachment, 0)
	for rows.Next() {
		var attachment store.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.UID,
			&attachment.CreatorID,
			&attachment.CreatedTs,
			&attachment.Filename,
			&attachment.Type,
			&attachment.Size,
			&attachment.FilePath,
			&attachment.ThumbnailPath,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan attachment")
		}
		list = append(list, &attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateAttachment(ctx context.Context, update *store.UpdateAttachment) error {
	set, args := []string{}, []any{}
	if v := update.ThumbnailPath; v != nil {
		set, args = append(set, "thumbnail_path = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, update.ID)

	stmt := `UPDATE attachment SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update attachment")
	}
	return nil
}

func (d *DB) DeleteAttachment(ctx context.Context, delete *store.DeleteAttachment) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM attachment WHERE id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete attachment")
	}
	return nil
}
