package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fixitapp/fixit/server/auth"
	"github.com/fixitapp/fixit/store"
)

type signUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type userResponse struct {
	ID       int32  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	AccessToken string        `json:"accessToken"`
	User        *userResponse `json:"user"`
}

func toUserResponse(user *store.User) *userResponse {
	return &userResponse{
		ID:       user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
		Role:     string(user.Role),
	}
}

// SignUp registers a new account and returns an access token. The first
// account on a fresh install becomes the admin.
func (s *APIV1Service) SignUp(c echo.Context) error {
	ctx := c.Request().Context()
	req := &signUpRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	if len(req.Username) < 3 || len(req.Username) > 32 {
		return echo.NewHTTPError(http.StatusBadRequest, "username must be 3-32 characters")
	}
	if len(req.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
	}

	existing, err := s.Store.GetUser(ctx, &store.FindUser{Username: &req.Username})
	if err != nil {
		return toHTTPError(err)
	}
	if existing != nil {
		return echo.NewHTTPError(http.StatusConflict, "username already taken")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	role := store.RoleUser
	users, err := s.Store.ListUsers(ctx, &store.FindUser{})
	if err != nil {
		return toHTTPError(err)
	}
	if len(users) == 0 {
		role = store.RoleAdmin
	}

	user, err := s.Store.CreateUser(ctx, &store.User{
		Username:     req.Username,
		Nickname:     req.Nickname,
		PasswordHash: passwordHash,
		Role:         role,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return s.issueToken(c, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and returns an access token.
func (s *APIV1Service) Login(c echo.Context) error {
	ctx := c.Request().Context()
	req := &loginRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	username := strings.TrimSpace(strings.ToLower(req.Username))

	user, err := s.Store.GetUser(ctx, &store.FindUser{Username: &username})
	if err != nil {
		return toHTTPError(err)
	}
	// Same response for unknown user and wrong password.
	if user == nil || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	return s.issueToken(c, user)
}

// Me returns the authenticated user.
func (s *APIV1Service) Me(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	user, err := s.Store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return toHTTPError(err)
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "user no longer exists")
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Logout revokes the access token used on this request.
func (s *APIV1Service) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}
	rawToken, ok := auth.TokenFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if err := s.Store.DeleteAccessToken(ctx, &store.DeleteAccessToken{
		UserID:    userID,
		TokenHash: auth.HashToken(rawToken),
	}); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) issueToken(c echo.Context, user *store.User) error {
	ctx := c.Request().Context()
	accessToken, err := auth.GenerateAccessToken(user.ID, s.Secret, time.Now())
	if err != nil {
		return toHTTPError(err)
	}
	if _, err := s.Store.CreateAccessToken(ctx, &store.AccessToken{
		UserID:      user.ID,
		TokenHash:   auth.HashToken(accessToken),
		Description: c.Request().UserAgent(),
	}); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, &tokenResponse{
		AccessToken: accessToken,
		User:        toUserResponse(user),
	})
}
