package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/fixitapp/fixit/store"
)

func (d *DB) CreateAccessToken(ctx context.Context, create *store.AccessToken) (*store.AccessToken, error) {
	stmt := `INSERT INTO user_access_token (user_id, token_hash, description)
		VALUES (?, ?, ?)
		RETURNING id, created_ts`
	if err := d.db.QueryRowContext(ctx, stmt, create.UserID, create.TokenHash, create.Description).Scan(
		&create.ID, &create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	return create, nil
}

func (d *DB) ListAccessTokens(ctx context.Context, find *store.FindAccessToken) ([]*store.AccessToken, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = ?"), append(args, *v)
	}
	if v := find.TokenHash; v != nil {
		where, args = append(where, "token_hash = ?"), append(args, *v)
	}

	query := `
		SELECT id, user_id, token_hash, description, created_ts
		FROM user_access_token
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query access tokens: %w", err)
	}
	defer rows.Close()

	list := make([]*store.AccessToken, 0)
	for rows.Next() {
		var token store.AccessToken
		if err := rows.Scan(
			&token.ID,
			&token.UserID,
			&token.TokenHash,
			&token.Description,
			&token.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan access token: %w", err)
		}
		list = append(list, &token)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteAccessToken(ctx context.Context, delete *store.DeleteAccessToken) error {
	if _, err := d.db.ExecContext(ctx,
		"DELETE FROM user_access_token WHERE user_id = ? AND token_hash = ?",
		delete.UserID, delete.TokenHash,
	); err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}
	return nil
}
