// Package server hosts the HTTP server and its lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/internal/observability"
	"github.com/fixitapp/fixit/internal/profile"
	apiv1 "github.com/fixitapp/fixit/server/router/api/v1"
	"github.com/fixitapp/fixit/store"
)

// Server is the Fixit HTTP server.
type Server struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
}

// NewServer creates the server and mounts the API routes.
func NewServer(ctx context.Context, prof *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLoggingMiddleware)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	s := &Server{
		Secret:  prof.Secret,
		Profile: prof,
		Store:   st,

		echoServer: e,
	}

	s.apiService = apiv1.NewAPIV1Service(prof.Secret, prof, st)
	s.apiService.Register(e)
	return s, nil
}

// requestLoggingMiddleware attaches a request-scoped logging context and
// emits one line per completed request.
func requestLoggingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqCtx := observability.NewRequestContext(slog.Default(), c.Request().Method+" "+c.Path(), 0)
		ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)
		c.SetRequest(c.Request().WithContext(ctx))

		err := next(c)

		status := c.Response().Status
		if httpErr, ok := err.(*echo.HTTPError); ok {
			status = httpErr.Code
		}
		reqCtx.Info("http request",
			slog.String("uri", c.Request().RequestURI),
			slog.Int("status", status),
			slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
		return err
	}
}

// Start runs the listener until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started",
		slog.String("address", address),
		slog.String("mode", s.Profile.Mode),
		slog.String("driver", s.Profile.Driver),
		slog.String("version", s.Profile.Version))

	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", slog.Any("err", err))
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", slog.Any("err", err))
	}
	slog.Info("server stopped")
}
