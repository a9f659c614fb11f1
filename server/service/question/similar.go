package question

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/store"
)

// SimilarQuestion is one similar-question search hit.
type SimilarQuestion struct {
	Question *store.Question `json:"question"`
	// Score is in [0,1], higher is more similar.
	Score float32 `json:"score"`
}

// FindSimilar returns questions resembling the given one, excluding itself.
// With an embedder and a vector-capable driver the search runs over content
// embeddings; otherwise it degrades to keyword overlap.
func (s *Service) FindSimilar(ctx context.Context, userID int32, uid string, limit int) ([]*SimilarQuestion, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 20 {
		limit = 20
	}
	current, err := s.Get(ctx, userID, uid)
	if err != nil {
		return nil, err
	}

	if s.embedder != nil {
		results, err := s.findSimilarByVector(ctx, userID, current, limit)
		if err == nil {
			return results, nil
		}
		if !errors.Is(err, store.ErrVectorUnsupported) {
			return nil, err
		}
	}
	return s.findSimilarByKeywords(ctx, userID, current, limit)
}

func (s *Service) findSimilarByVector(ctx context.Context, userID int32, current *store.Question, limit int) ([]*SimilarQuestion, error) {
	vector, err := s.embedder.Embed(ctx, current.Content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}
	// One extra slot because the question itself is usually the top hit.
	hits, err := s.store.SearchQuestionsByVector(ctx, userID, vector, limit+1)
	if err != nil {
		return nil, err
	}

	results := make([]*SimilarQuestion, 0, limit)
	for _, hit := range hits {
		if hit.Question.ID == current.ID {
			continue
		}
		results = append(results, &SimilarQuestion{Question: hit.Question, Score: hit.Score})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (s *Service) findSimilarByKeywords(ctx context.Context, userID int32, current *store.Question, limit int) ([]*SimilarQuestion, error) {
	candidateLimit := 200
	candidates, err := s.store.ListQuestions(ctx, &store.FindQuestion{
		CreatorID: &userID,
		Limit:     &candidateLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list candidates")
	}

	currentWords := wordSet(current.Content)
	var results []*SimilarQuestion
	for _, candidate := range candidates {
		if candidate.ID == current.ID {
			continue
		}
		score := jaccard(currentWords, wordSet(candidate.Content))
		if candidate.Subject != "" && candidate.Subject == current.Subject {
			score += 0.1
		}
		if score > 0.1 {
			results = append(results, &SimilarQuestion{Question: candidate, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// wordSet tokenizes content into lowercase words of two or more runes.
func wordSet(content string) map[string]bool {
	set := make(map[string]bool)
	var current strings.Builder
	flush := func() {
		if current.Len() >= 2 {
			set[current.String()] = true
		}
		current.Reset()
	}
	for _, r := range strings.ToLower(content) {
		if isWordChar(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return set
}

func jaccard(a, b map[string]bool) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float32(intersection) / float32(union)
}

func isWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9') ||
		(r >= 0x4E00 && r <= 0x9FFF) // CJK characters
}
