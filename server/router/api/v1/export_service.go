package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fixitapp/fixit/server/service/export"
)

// ExportNotebook renders the user's questions as a printable HTML
// document. Query params: ?subjects=math,physics ?withAnswers=true
// ?title=...
func (s *APIV1Service) ExportNotebook(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.currentUserID(c)
	if err != nil {
		return err
	}

	req := &export.Request{
		WithAnswers: c.QueryParam("withAnswers") == "true",
		Title:       c.QueryParam("title"),
	}
	if subjects := c.QueryParam("subjects"); subjects != "" {
		req.Subjects = strings.Split(subjects, ",")
	}

	doc, err := s.Exporter.HTML(ctx, userID, req)
	if err != nil {
		return toHTTPError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="notebook.html"`)
	return c.Blob(http.StatusOK, echo.MIMETextHTMLCharsetUTF8, doc)
}
