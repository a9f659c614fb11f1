package store

import (
	"context"
)

// AccessToken is a record of an issued access token. Only a hash of the
// token is stored; deleting the row revokes the token.
type AccessToken struct {
	ID        int32
	UserID    int32
	CreatedTs int64

	TokenHash   string
	Description string
}

// FindAccessToken is the find condition for access tokens.
type FindAccessToken struct {
	UserID    *int32
	TokenHash *string
}

// DeleteAccessToken is the delete request for an access token.
type DeleteAccessToken struct {
	UserID    int32
	TokenHash string
}

// CreateAccessToken records an issued access token.
func (s *Store) CreateAccessToken(ctx context.Context, create *AccessToken) (*AccessToken, error) {
	return s.driver.CreateAccessToken(ctx, create)
}

// ListAccessTokens lists access tokens with filter.
func (s *Store) ListAccessTokens(ctx context.Context, find *FindAccessToken) ([]*AccessToken, error) {
	return s.driver.ListAccessTokens(ctx, find)
}

// GetAccessToken gets an access token by find condition.
func (s *Store) GetAccessToken(ctx context.Context, find *FindAccessToken) (*AccessToken, error) {
	list, err := s.driver.ListAccessTokens(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// DeleteAccessToken revokes an access token.
func (s *Store) DeleteAccessToken(ctx context.Context, delete *DeleteAccessToken) error {
	return s.driver.DeleteAccessToken(ctx, delete)
}
