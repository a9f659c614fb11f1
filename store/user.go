package store

import (
	"context"
	"fmt"
)

// Role is the role of a user.
type Role string

const (
	// RoleAdmin is the admin role.
	RoleAdmin Role = "ADMIN"
	// RoleUser is the normal user role.
	RoleUser Role = "USER"
)

// User is the object representing an account.
type User struct {
	ID        int32
	CreatedTs int64
	UpdatedTs int64

	Username     string
	Nickname     string
	PasswordHash string
	Role         Role
}

// FindUser is the find condition for users.
type FindUser struct {
	ID       *int32
	Username *string
	Role     *Role
}

// UpdateUser is the update request for a user.
type UpdateUser struct {
	ID           int32
	UpdatedTs    *int64
	Nickname     *string
	PasswordHash *string
}

// DeleteUser is the delete request for a user.
type DeleteUser struct {
	ID int32
}

// CreateUser creates a new user.
func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

// ListUsers lists users with filter.
func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// GetUser gets a user by find condition, checking the cache for id lookups.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil && find.Username == nil {
		if cached, ok := s.userCache.Get(userCacheKey(*find.ID)); ok {
			return cached.(*User), nil
		}
	}
	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	user := list[0]
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

// UpdateUser updates a user and invalidates its cache entry.
func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	user, err := s.driver.UpdateUser(ctx, update)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

// DeleteUser deletes a user.
func (s *Store) DeleteUser(ctx context.Context, delete *DeleteUser) error {
	if err := s.driver.DeleteUser(ctx, delete); err != nil {
		return err
	}
	s.userCache.Delete(userCacheKey(delete.ID))
	return nil
}

func userCacheKey(id int32) string {
	return fmt.Sprintf("user-%d", id)
}
