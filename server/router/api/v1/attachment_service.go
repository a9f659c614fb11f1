package v1

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/internal/base"
	"github.com/fixitapp/fixit/store"
)

const (
	// maxUploadSizeBytes caps a single attachment upload.
	maxUploadSizeBytes = 32 << 20
	// thumbnailCacheFolder is where generated thumbnails live, under the
	// data directory.
	thumbnailCacheFolder = ".thumbnail_cache"
	thumbnailMaxSize     = 600
)

var supportedThumbnailTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// CreateAttachment stores an uploaded file under the data directory.
func (s *APIV1Service) CreateAttachment(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > maxUploadSizeBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return toHTTPError(err)
	}
	defer src.Close()

	uid := base.GenerateUID()
	relPath := filepath.Join("assets", time.Now().Format("2006/01"), uid+filepath.Ext(fileHeader.Filename))
	absPath := filepath.Join(s.Profile.Data, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return toHTTPError(errors.Wrap(err, "failed to create attachment dir"))
	}
	dst, err := os.Create(absPath)
	if err != nil {
		return toHTTPError(errors.Wrap(err, "failed to create attachment file"))
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return toHTTPError(errors.Wrap(err, "failed to write attachment"))
	}

	attachment, err := s.Store.CreateAttachment(ctx, &store.Attachment{
		UID:       uid,
		CreatorID: userID,
		Filename:  fileHeader.Filename,
		Type:      fileHeader.Header.Get("Content-Type"),
		Size:      fileHeader.Size,
		FilePath:  relPath,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, attachment)
}

// GetAttachment streams the stored file.
func (s *APIV1Service) GetAttachment(c echo.Context) error {
	attachment, err := s.findOwnedAttachment(c)
	if err != nil {
		return err
	}
	return c.File(filepath.Join(s.Profile.Data, attachment.FilePath))
}

// GetAttachmentThumbnail serves a downscaled rendition, generating and
// caching it on first request. Non-image attachments fall back to the
// original file.
func (s *APIV1Service) GetAttachmentThumbnail(c echo.Context) error {
	ctx := c.Request().Context()
	attachment, err := s.findOwnedAttachment(c)
	if err != nil {
		return err
	}
	if !supportedThumbnailTypes[attachment.Type] {
		return c.File(filepath.Join(s.Profile.Data, attachment.FilePath))
	}

	if attachment.ThumbnailPath != "" {
		thumbPath := filepath.Join(s.Profile.Data, attachment.ThumbnailPath)
		if _, err := os.Stat(thumbPath); err == nil {
			return c.File(thumbPath)
		}
	}

	if err := s.thumbnailSemaphore.Acquire(ctx, 1); err != nil {
		return toHTTPError(err)
	}
	defer s.thumbnailSemaphore.Release(1)

	srcPath := filepath.Join(s.Profile.Data, attachment.FilePath)
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return toHTTPError(errors.Wrap(err, "failed to open image"))
	}
	thumb := imaging.Fit(img, thumbnailMaxSize, thumbnailMaxSize, imaging.Lanczos)

	relThumbPath := filepath.Join(thumbnailCacheFolder, attachment.UID+".jpg")
	absThumbPath := filepath.Join(s.Profile.Data, relThumbPath)
	if err := os.MkdirAll(filepath.Dir(absThumbPath), 0o755); err != nil {
		return toHTTPError(errors.Wrap(err, "failed to create thumbnail dir"))
	}
	if err := imaging.Save(thumb, absThumbPath, imaging.JPEGQuality(85)); err != nil {
		return toHTTPError(errors.Wrap(err, "failed to save thumbnail"))
	}
	if err := s.Store.UpdateAttachment(ctx, &store.UpdateAttachment{
		ID:            attachment.ID,
		ThumbnailPath: &relThumbPath,
	}); err != nil {
		return toHTTPError(err)
	}
	return c.File(absThumbPath)
}

// DeleteAttachment removes the record and the stored files.
func (s *APIV1Service) DeleteAttachment(c echo.Context) error {
	ctx := c.Request().Context()
	attachment, err := s.findOwnedAttachment(c)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteAttachment(ctx, &store.DeleteAttachment{ID: attachment.ID}); err != nil {
		return toHTTPError(err)
	}
	// File removal is best-effort; a leftover file is reclaimed by the next
	// cleanup, a dangling row is not.
	os.Remove(filepath.Join(s.Profile.Data, attachment.FilePath))
	if attachment.ThumbnailPath != "" {
		os.Remove(filepath.Join(s.Profile.Data, attachment.ThumbnailPath))
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) findOwnedAttachment(c echo.Context) (*store.Attachment, error) {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil, err
	}
	uid := c.Param("uid")
	attachment, err := s.Store.GetAttachment(ctx, &store.FindAttachment{
		UID:       &uid,
		CreatorID: &userID,
	})
	if err != nil {
		return nil, toHTTPError(err)
	}
	if attachment == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "attachment not found")
	}
	return attachment, nil
}
