package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fixitapp/fixit/server/service/question"
)

// CreateQuestion stores a new question.
func (s *APIV1Service) CreateQuestion(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	req := &question.CreateRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	created, err := s.QuestionService.Create(ctx, userID, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// ListQuestions lists the user's questions. Supports ?filter= (CEL
// expression), ?dueOnly=true, ?limit= and ?offset=.
func (s *APIV1Service) ListQuestions(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	req := &question.ListRequest{
		Filter:  c.QueryParam("filter"),
		DueOnly: c.QueryParam("dueOnly") == "true",
		Limit:   queryInt(c, "limit", 50),
		Offset:  queryInt(c, "offset", 0),
	}
	questions, err := s.QuestionService.List(ctx, userID, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, questions)
}

// GetQuestion returns one question by uid.
func (s *APIV1Service) GetQuestion(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	q, err := s.QuestionService.Get(ctx, userID, c.Param("uid"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, q)
}

// UpdateQuestion patches a question's content fields.
func (s *APIV1Service) UpdateQuestion(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	req := &question.UpdateRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	updated, err := s.QuestionService.Update(ctx, userID, c.Param("uid"), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteQuestion removes a question and its review history.
func (s *APIV1Service) DeleteQuestion(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	if err := s.QuestionService.Delete(ctx, userID, c.Param("uid")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ImportQuestions stores a batch of questions, reporting per-item errors.
func (s *APIV1Service) ImportQuestions(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	var items []*question.CreateRequest
	if err := c.Bind(&items); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if len(items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "empty import")
	}
	result, err := s.QuestionService.Import(ctx, userID, items)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// SimilarQuestions returns questions resembling the given one.
func (s *APIV1Service) SimilarQuestions(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	results, err := s.QuestionService.FindSimilar(ctx, userID, c.Param("uid"), queryInt(c, "limit", 5))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, results)
}

// QuestionStats returns the per-question review summary and history.
func (s *APIV1Service) QuestionStats(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	stats, err := s.ReviewService.GetQuestionStats(ctx, userID, c.Param("uid"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// ListTags returns the user's tags with question counts.
func (s *APIV1Service) ListTags(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	tags, err := s.QuestionService.ListTags(ctx, userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, tags)
}

// DeleteTag removes a tag, detaching it from all questions.
func (s *APIV1Service) DeleteTag(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	if err := s.QuestionService.DeleteTag(ctx, userID, c.Param("name")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
