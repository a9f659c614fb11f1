// Package v1 exposes the REST API. Handlers translate HTTP requests into
// service calls and service error kinds into HTTP statuses.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/fixitapp/fixit/internal/profile"
	"github.com/fixitapp/fixit/plugin/ai"
	"github.com/fixitapp/fixit/server/auth"
	"github.com/fixitapp/fixit/server/middleware"
	"github.com/fixitapp/fixit/server/service/export"
	"github.com/fixitapp/fixit/server/service/question"
	"github.com/fixitapp/fixit/server/service/review"
	"github.com/fixitapp/fixit/store"
)

// APIV1Service wires the service layer into echo routes.
type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	QuestionService *question.Service
	ReviewService   *review.Service
	Exporter        *export.Exporter
	AIClient        *ai.Client

	rateLimiter *middleware.RateLimiter
	// thumbnailSemaphore bounds concurrent thumbnail generation.
	thumbnailSemaphore *semaphore.Weighted
}

// NewAPIV1Service creates the API service and its service-layer
// collaborators.
func NewAPIV1Service(secret string, prof *profile.Profile, st *store.Store) *APIV1Service {
	s := &APIV1Service{
		Secret:             secret,
		Profile:            prof,
		Store:              st,
		ReviewService:      review.NewService(st),
		Exporter:           export.NewExporter(st),
		rateLimiter:        middleware.NewRateLimiter(),
		thumbnailSemaphore: semaphore.NewWeighted(3),
	}

	questionOpts := []question.Option{}
	if prof.IsAIEnabled() {
		client, err := ai.NewClient(ai.Config{
			APIKey:         prof.AIAPIKey,
			BaseURL:        prof.AIBaseURL,
			ChatModel:      prof.AIModel,
			EmbeddingModel: prof.AIEmbeddingModel,
		})
		if err != nil {
			slog.Warn("AI features disabled", slog.Any("err", err))
		} else {
			s.AIClient = client
			questionOpts = append(questionOpts, question.WithEmbedder(client))
		}
	}
	s.QuestionService = question.NewService(st, questionOpts...)
	return s
}

// Register mounts all v1 routes on the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	rootGroup := e.Group("/api/v1")
	rootGroup.GET("/ping", s.Ping)
	rootGroup.POST("/auth/signup", s.SignUp, s.rateLimitMiddleware)
	rootGroup.POST("/auth/login", s.Login, s.rateLimitMiddleware)
	rootGroup.GET("/feed/:username", s.QuestionFeed)

	authGroup := e.Group("/api/v1", s.authMiddleware)
	authGroup.GET("/auth/me", s.Me)
	authGroup.POST("/auth/logout", s.Logout)

	authGroup.POST("/questions", s.CreateQuestion)
	authGroup.GET("/questions", s.ListQuestions)
	authGroup.GET("/questions/:uid", s.GetQuestion)
	authGroup.PATCH("/questions/:uid", s.UpdateQuestion)
	authGroup.DELETE("/questions/:uid", s.DeleteQuestion)
	authGroup.POST("/questions/import", s.ImportQuestions)
	authGroup.GET("/questions/:uid/similar", s.SimilarQuestions)
	authGroup.GET("/questions/:uid/stats", s.QuestionStats)

	authGroup.GET("/tags", s.ListTags)
	authGroup.DELETE("/tags/:name", s.DeleteTag)

	authGroup.POST("/review/session", s.StartSession)
	authGroup.POST("/review/session/reset", s.ResetSession)
	authGroup.GET("/review/session", s.GetSession)
	authGroup.GET("/review/sessions", s.ListSessions)
	authGroup.POST("/review/session/:uid/answer", s.SubmitAnswer)
	authGroup.POST("/review/session/:uid/navigate", s.NavigateSession)
	authGroup.POST("/review/session/:uid/jump", s.JumpToQuestion)
	authGroup.PATCH("/review/session/:uid/status", s.UpdateSessionStatus)

	authGroup.GET("/stats/overview", s.StatsOverview)
	authGroup.GET("/stats/heatmap", s.StatsHeatmap)

	authGroup.POST("/attachments", s.CreateAttachment)
	authGroup.GET("/attachments/:uid", s.GetAttachment)
	authGroup.GET("/attachments/:uid/thumbnail", s.GetAttachmentThumbnail)
	authGroup.DELETE("/attachments/:uid", s.DeleteAttachment)

	authGroup.GET("/export", s.ExportNotebook)

	authGroup.POST("/ai/analysis", s.GenerateAnalysis)
	authGroup.POST("/ai/tags", s.SuggestTags)
	authGroup.POST("/ai/extract", s.ExtractQuestion)
}

// Ping is the unauthenticated health check.
func (s *APIV1Service) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}

// authMiddleware authenticates the request and stores the user id on the
// request context. A valid signature alone is not enough: the token hash
// must still be on record, so logged-out tokens are rejected.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		userID, err := auth.Authenticate(authHeader, s.Secret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		rawToken, _ := auth.TokenFromHeader(authHeader)
		tokenHash := auth.HashToken(rawToken)
		record, err := s.Store.GetAccessToken(c.Request().Context(), &store.FindAccessToken{
			UserID:    &userID,
			TokenHash: &tokenHash,
		})
		if err != nil {
			return toHTTPError(err)
		}
		if record == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "access token revoked")
		}
		ctx := auth.SetUserIDInContext(c.Request().Context(), userID)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// rateLimitMiddleware throttles credential endpoints per client address.
func (s *APIV1Service) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.rateLimiter.Allow(c.RealIP()) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		}
		return next(c)
	}
}

func (s *APIV1Service) currentUserID(c echo.Context) (int32, error) {
	userID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return userID, nil
}

// toHTTPError maps service error kinds onto HTTP statuses.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, review.ErrNotFound),
		errors.Is(err, question.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, review.ErrInvalidArgument),
		errors.Is(err, question.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, review.ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, review.ErrNoCandidates):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("request failed", slog.Any("err", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
