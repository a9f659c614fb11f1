package store

import (
	"context"
)

// Tag is a user-scoped label attached to questions. Tags are created lazily
// when first referenced by a question create or update.
type Tag struct {
	ID        int32
	CreatorID int32
	Name      string
	CreatedTs int64

	// Composed field: number of questions carrying the tag.
	QuestionCount int32
}

// FindTag is the find condition for tags.
type FindTag struct {
	ID        *int32
	CreatorID *int32
	Name      *string
}

// DeleteTag is the delete request for a tag; joins cascade.
type DeleteTag struct {
	ID int32
}

// UpsertTag creates the tag if missing and returns the stored row either way.
func (s *Store) UpsertTag(ctx context.Context, upsert *Tag) (*Tag, error) {
	return s.driver.UpsertTag(ctx, upsert)
}

// ListTags lists tags with filter, including per-tag question counts.
func (s *Store) ListTags(ctx context.Context, find *FindTag) ([]*Tag, error) {
	return s.driver.ListTags(ctx, find)
}

// DeleteTag deletes a tag and detaches it from all questions.
func (s *Store) DeleteTag(ctx context.Context, delete *DeleteTag) error {
	return s.driver.DeleteTag(ctx, delete)
}
