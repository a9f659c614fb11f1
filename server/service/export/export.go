// Package export renders a user's mistake notebook into a printable HTML
// document. Question fields are treated as markdown. PDF conversion is
// left to an external renderer fed with the HTML output.
package export

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/fixitapp/fixit/store"
)

// Store is the interface for store operations needed by the exporter.
type Store interface {
	ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error)
}

// Renderer converts the exported HTML into another format, e.g. PDF via a
// headless browser sidecar.
type Renderer interface {
	Render(ctx context.Context, html []byte) ([]byte, error)
}

// Exporter renders notebooks.
type Exporter struct {
	store    Store
	markdown goldmark.Markdown
	now      func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock injects a fixed timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// NewExporter creates a new exporter.
func NewExporter(store Store, opts ...Option) *Exporter {
	e := &Exporter{
		store: store,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request selects what goes into the export.
type Request struct {
	// Subjects restricts the export; empty means all subjects.
	Subjects []string
	// WithAnswers includes the answer and analysis sections. A blank
	// worksheet export leaves them out.
	WithAnswers bool
	Title       string
}

// HTML renders the user's questions into a standalone HTML document.
func (e *Exporter) HTML(ctx context.Context, userID int32, req *Request) ([]byte, error) {
	questions, err := e.store.ListQuestions(ctx, &store.FindQuestion{
		CreatorID: &userID,
		Subjects:  req.Subjects,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list questions")
	}

	title := req.Title
	if title == "" {
		title = "Mistake Notebook"
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title))
	buf.WriteString("<style>\n" + documentStyle + "</style>\n</head>\n<body>\n")
	fmt.Fprintf(&buf, "<h1>%s</h1>\n", html.EscapeString(title))
	fmt.Fprintf(&buf, "<p class=\"meta\">Exported %s · %d questions</p>\n",
		e.now().Format("2006-01-02"), len(questions))

	for i, question := range questions {
		if err := e.writeQuestion(&buf, i+1, question, req.WithAnswers); err != nil {
			return nil, err
		}
	}

	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

func (e *Exporter) writeQuestion(buf *bytes.Buffer, number int, question *store.Question, withAnswers bool) error {
	buf.WriteString("<section class=\"question\">\n")
	header := fmt.Sprintf("No. %d", number)
	if question.Subject != "" {
		header += " · " + question.Subject
	}
	if len(question.Tags) > 0 {
		header += " · " + strings.Join(question.Tags, ", ")
	}
	fmt.Fprintf(buf, "<h2>%s</h2>\n", html.EscapeString(header))

	if err := e.writeMarkdown(buf, question.Content); err != nil {
		return err
	}
	if withAnswers {
		if question.Answer != "" {
			buf.WriteString("<h3>Answer</h3>\n")
			if err := e.writeMarkdown(buf, question.Answer); err != nil {
				return err
			}
		}
		if question.Analysis != "" {
			buf.WriteString("<h3>Analysis</h3>\n")
			if err := e.writeMarkdown(buf, question.Analysis); err != nil {
				return err
			}
		}
		if question.Remark != "" {
			buf.WriteString("<h3>Remark</h3>\n")
			if err := e.writeMarkdown(buf, question.Remark); err != nil {
				return err
			}
		}
	}
	buf.WriteString("</section>\n")
	return nil
}

func (e *Exporter) writeMarkdown(buf *bytes.Buffer, source string) error {
	if err := e.markdown.Convert([]byte(source), buf); err != nil {
		return errors.Wrap(err, "failed to render markdown")
	}
	return nil
}

// Render runs the HTML export through the given renderer, typically a PDF
// converter.
func (e *Exporter) Render(ctx context.Context, userID int32, req *Request, renderer Renderer) ([]byte, error) {
	htmlDoc, err := e.HTML(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	out, err := renderer.Render(ctx, htmlDoc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render export")
	}
	return out, nil
}

const documentStyle = `body { font-family: serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
h1 { border-bottom: 2px solid #333; padding-bottom: .5rem; }
.meta { color: #666; }
.question { page-break-inside: avoid; border-bottom: 1px solid #ddd; padding: 1rem 0; }
.question h2 { font-size: 1rem; color: #444; }
.question h3 { font-size: .9rem; color: #666; margin-bottom: .25rem; }
`
