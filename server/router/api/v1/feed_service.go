package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/fixitapp/fixit/store"
)

const feedItemLimit = 20

// QuestionFeed serves the user's most recent questions as an RSS feed, so
// a feed reader can double as a lightweight review reminder. Answers are
// never included.
func (s *APIV1Service) QuestionFeed(c echo.Context) error {
	ctx := c.Request().Context()
	username := c.Param("username")

	user, err := s.Store.GetUser(ctx, &store.FindUser{Username: &username})
	if err != nil {
		return toHTTPError(err)
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	limit := feedItemLimit
	questions, err := s.Store.ListQuestions(ctx, &store.FindQuestion{
		CreatorID: &user.ID,
		Limit:     &limit,
	})
	if err != nil {
		return toHTTPError(err)
	}

	baseURL := c.Scheme() + "://" + c.Request().Host
	feed := &feeds.Feed{
		Title:   username + "'s mistake notebook",
		Link:    &feeds.Link{Href: baseURL + "/api/v1/feed/" + username},
		Created: time.Now(),
	}
	for _, q := range questions {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:      q.UID,
			Title:   feedItemTitle(q.Content),
			Link:    &feeds.Link{Href: baseURL + "/api/v1/questions/" + q.UID},
			Content: q.Content,
			Created: time.Unix(q.CreatedTs, 0),
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return toHTTPError(err)
	}
	return c.Blob(http.StatusOK, "application/rss+xml", []byte(rss))
}

// feedItemTitle shortens question content to a title, truncating on rune
// boundaries so multi-byte text stays valid.
func feedItemTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= 80 {
		return content
	}
	return string(runes[:77]) + "..."
}
