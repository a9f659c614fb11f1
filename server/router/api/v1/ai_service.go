package v1

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/store"
)

type generateAnalysisRequest struct {
	QuestionUID string `json:"questionUid"`
}

type generateAnalysisResponse struct {
	Analysis string `json:"analysis"`
}

// GenerateAnalysis asks the model for a step-by-step explanation of the
// question's answer. The result is returned, not stored; the client
// decides whether to keep it.
func (s *APIV1Service) GenerateAnalysis(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	if s.AIClient == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "AI features are not configured")
	}
	req := &generateAnalysisRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	q, err := s.QuestionService.Get(ctx, userID, req.QuestionUID)
	if err != nil {
		return toHTTPError(err)
	}
	analysis, err := s.AIClient.GenerateAnalysis(ctx, q.Subject, q.Content, q.Answer)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, &generateAnalysisResponse{Analysis: analysis})
}

type suggestTagsRequest struct {
	Content string `json:"content"`
}

type suggestTagsResponse struct {
	Tags []string `json:"tags"`
}

// SuggestTags proposes topic tags for question content being drafted.
func (s *APIV1Service) SuggestTags(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.currentUserID(c); err != nil {
		return err
	}
	if s.AIClient == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "AI features are not configured")
	}
	req := &suggestTagsRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	tags, err := s.AIClient.SuggestTags(ctx, req.Content)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, &suggestTagsResponse{Tags: tags})
}

type extractQuestionRequest struct {
	AttachmentUID string `json:"attachmentUid"`
}

// ExtractQuestion transcribes a previously uploaded question photo into
// editable text via the vision model.
func (s *APIV1Service) ExtractQuestion(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	if s.AIClient == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "AI features are not configured")
	}
	req := &extractQuestionRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if req.AttachmentUID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "attachmentUid is required")
	}

	attachment, err := s.Store.GetAttachment(ctx, &store.FindAttachment{
		UID:       &req.AttachmentUID,
		CreatorID: &userID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	if attachment == nil {
		return echo.NewHTTPError(http.StatusNotFound, "attachment not found")
	}
	if !supportedThumbnailTypes[attachment.Type] {
		return echo.NewHTTPError(http.StatusBadRequest, "attachment is not an image")
	}

	imageData, err := os.ReadFile(filepath.Join(s.Profile.Data, attachment.FilePath))
	if err != nil {
		return toHTTPError(errors.Wrap(err, "failed to read attachment"))
	}
	extraction, err := s.AIClient.ExtractQuestion(ctx, imageData, attachment.Type)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, extraction)
}
