package question

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fixitapp/fixit/store"
)

// ImportError records why one item of a bulk import was rejected.
type ImportError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("item %d: %s", e.Index, e.Message)
}

// ImportResult summarizes a bulk import. Failed items are skipped, not
// retried; the created list holds the stored questions in input order.
type ImportResult struct {
	Created []*store.Question `json:"created"`
	Errors  []*ImportError    `json:"errors"`
}

// Import stores a batch of questions, collecting per-item errors instead of
// aborting on the first bad row.
func (s *Service) Import(ctx context.Context, userID int32, items []*CreateRequest) (*ImportResult, error) {
	result := &ImportResult{}
	for i, item := range items {
		question, err := s.Create(ctx, userID, item)
		if err != nil {
			result.Errors = append(result.Errors, &ImportError{
				Index:   i,
				Message: err.Error(),
			})
			continue
		}
		result.Created = append(result.Created, question)
	}
	slog.Info("question import finished",
		slog.Int("created", len(result.Created)),
		slog.Int("failed", len(result.Errors)))
	return result, nil
}
