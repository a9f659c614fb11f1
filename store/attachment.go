package store

import (
	"context"
)

// Attachment is an uploaded image referenced by questions.
type Attachment struct {
	// ID is the system generated unique identifier for the attachment.
	ID int32
	// UID is the user-visible unique identifier for the attachment.
	UID string

	CreatorID int32
	CreatedTs int64

	Filename string
	Type     string
	Size     int64
	// FilePath is the path relative to the data directory.
	FilePath string
	// ThumbnailPath is set once a thumbnail has been generated.
	ThumbnailPath string
}

// FindAttachment is the find condition for attachments.
type FindAttachment struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	// UIDList restricts the result to the given uids (any order).
	UIDList []string

	Limit  *int
	Offset *int
}

// UpdateAttachment is the update request for an attachment.
type UpdateAttachment struct {
	ID            int32
	ThumbnailPath *string
}

// DeleteAttachment is the delete request for an attachment.
type DeleteAttachment struct {
	ID int32
}

// CreateAttachment creates a new attachment record.
func (s *Store) CreateAttachment(ctx context.Context, create *Attachment) (*Attachment, error) {
	return s.driver.CreateAttachment(ctx, create)
}

// ListAttachments lists attachments with filter.
func (s *Store) ListAttachments(ctx context.Context, find *FindAttachment) ([]*Attachment, error) {
	return s.driver.ListAttachments(ctx, find)
}

// GetAttachment gets an attachment by find condition.
func (s *Store) GetAttachment(ctx context.Context, find *FindAttachment) (*Attachment, error) {
	list, err := s.driver.ListAttachments(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateAttachment updates an attachment record.
func (s *Store) UpdateAttachment(ctx context.Context, update *UpdateAttachment) error {
	return s.driver.UpdateAttachment(ctx, update)
}

// DeleteAttachment deletes an attachment record. Removing the underlying
// file is the caller's responsibility.
func (s *Store) DeleteAttachment(ctx context.Context, delete *DeleteAttachment) error {
	return s.driver.DeleteAttachment(ctx, delete)
}
