package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixitapp/fixit/server/service/review"
	"github.com/fixitapp/fixit/store"
)

type startSessionRequest struct {
	Limit    int32    `json:"limit"`
	Subjects []string `json:"subjects"`
	Tags     []string `json:"tags"`
	// Mastery range, inclusive; nil means unbounded.
	MasteryMin *int32 `json:"masteryMin"`
	MasteryMax *int32 `json:"masteryMax"`
}

// StartSession begins a new practice session, closing any active one.
func (s *APIV1Service) StartSession(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	req := &startSessionRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	session, err := s.ReviewService.Start(ctx, userID, req.Limit, review.Filters{
		Subjects:   req.Subjects,
		TagNames:   req.Tags,
		MasteryMin: req.MasteryMin,
		MasteryMax: req.MasteryMax,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, session)
}

type resetSessionRequest struct {
	Limit int32 `json:"limit"`
}

// ResetSession begins a due-only session without the fallback to the full
// question set.
func (s *APIV1Service) ResetSession(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	req := &resetSessionRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	session, err := s.ReviewService.Reset(ctx, userID, req.Limit)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, session)
}

// GetSession returns the active session, or 204 when none is active.
func (s *APIV1Service) GetSession(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	session, err := s.ReviewService.Get(ctx, userID)
	if err != nil {
		return toHTTPError(err)
	}
	if session == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, session)
}

// ListSessions returns past sessions, newest first.
func (s *APIV1Service) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	sessions, err := s.ReviewService.ListHistory(ctx, userID, queryInt(c, "limit", 30))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, sessions)
}

type submitAnswerRequest struct {
	QuestionUID string `json:"questionUid"`
	Status      string `json:"status"`
	Note        string `json:"note"`
	// Duration is the seconds spent on the question.
	Duration int32 `json:"duration"`
}

// SubmitAnswer records one review outcome and advances the session.
func (s *APIV1Service) SubmitAnswer(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	req := &submitAnswerRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	result, err := s.ReviewService.SubmitAnswer(ctx, userID, c.Param("uid"), req.QuestionUID,
		store.ReviewStatus(req.Status), req.Note, req.Duration)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type navigateRequest struct {
	Direction string `json:"direction"`
}

// NavigateSession moves the cursor one question forward or back.
func (s *APIV1Service) NavigateSession(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	req := &navigateRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	session, err := s.ReviewService.Navigate(ctx, userID, c.Param("uid"), review.Direction(req.Direction))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, session)
}

type jumpToRequest struct {
	QuestionUID string `json:"questionUid"`
}

// JumpToQuestion moves the cursor to a specific question in the session.
func (s *APIV1Service) JumpToQuestion(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	req := &jumpToRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	session, err := s.ReviewService.JumpTo(ctx, userID, c.Param("uid"), req.QuestionUID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, session)
}

type updateSessionStatusRequest struct {
	Status string `json:"status"`
}

// UpdateSessionStatus sets the session status directly.
func (s *APIV1Service) UpdateSessionStatus(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	req := &updateSessionStatusRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	session, err := s.ReviewService.UpdateStatus(ctx, userID, c.Param("uid"), store.SessionStatus(req.Status))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, session)
}

// StatsOverview returns the dashboard numbers.
func (s *APIV1Service) StatsOverview(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	overview, err := s.ReviewService.GetOverview(ctx, userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, overview)
}

// StatsHeatmap returns daily review counts for ?days= (default 365).
func (s *APIV1Service) StatsHeatmap(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	cells, err := s.ReviewService.GetHeatmap(ctx, userID, queryInt(c, "days", 365))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, cells)
}
