package review

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/store"
)

// Overview summarizes a user's notebook and review activity. Everything
// here is recomputed from the question projections and the review log, so
// the numbers stay correct even after questions are deleted.
type Overview struct {
	TotalQuestions int32 `json:"totalQuestions"`
	DueToday       int32 `json:"dueToday"`
	ReviewedToday  int32 `json:"reviewedToday"`
	TotalReviews   int32 `json:"totalReviews"`
	// MasteryCounts is indexed by mastery level 0 through 5.
	MasteryCounts [6]int32 `json:"masteryCounts"`
	CurrentStreak int32    `json:"currentStreak"`
	LongestStreak int32    `json:"longestStreak"`
	// TotalTimeSpent is the accumulated review duration in seconds.
	TotalTimeSpent int64 `json:"totalTimeSpent"`
}

// HeatmapCell is one day of review activity.
type HeatmapCell struct {
	Date  string `json:"date"`
	Count int32  `json:"count"`
}

// QuestionStats is the per-question review history summary.
type QuestionStats struct {
	QuestionUID   string `json:"questionUid"`
	MasteryLevel  int32  `json:"masteryLevel"`
	PracticeCount int32  `json:"practiceCount"`
	TimeSpent     int32  `json:"timeSpent"`
	// MasteredRate is the share of reviews answered MASTERED, in [0, 1].
	MasteredRate float64            `json:"masteredRate"`
	NextReviewTs *int64             `json:"nextReviewTs,omitempty"`
	History      []*store.ReviewLog `json:"history"`
}

// GetOverview computes the user's dashboard numbers as of now.
func (s *Service) GetOverview(ctx context.Context, userID int32) (*Overview, error) {
	now := s.now()
	nowTs := now.Unix()

	questions, err := s.store.ListQuestions(ctx, &store.FindQuestion{
		CreatorID: &userID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list questions")
	}
	logs, err := s.store.ListReviewLogs(ctx, &store.FindReviewLog{
		UserID: &userID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list review logs")
	}

	overview := &Overview{
		TotalQuestions: int32(len(questions)),
		TotalReviews:   int32(len(logs)),
	}
	for _, question := range questions {
		if question.MasteryLevel >= MinMasteryLevel && question.MasteryLevel <= MaxMasteryLevel {
			overview.MasteryCounts[question.MasteryLevel]++
		}
		// Never-reviewed questions count as due, same as the session
		// selection query.
		if question.NextReviewTs == nil || *question.NextReviewTs <= nowTs {
			overview.DueToday++
		}
		overview.TotalTimeSpent += int64(question.TotalTimeSpent)
	}

	dayStart := startOfDay(now)
	for _, log := range logs {
		if log.CreatedTs >= dayStart.Unix() {
			overview.ReviewedToday++
		}
	}

	overview.CurrentStreak, overview.LongestStreak = calculateStreaks(logs, now)
	return overview, nil
}

// GetHeatmap returns one cell per day for the last days days, oldest
// first. Days without activity are included with a zero count so clients
// can render a contiguous grid.
func (s *Service) GetHeatmap(ctx context.Context, userID int32, days int) ([]*HeatmapCell, error) {
	if days <= 0 {
		days = 365
	}
	now := s.now()
	since := startOfDay(now).AddDate(0, 0, -(days - 1)).Unix()

	logs, err := s.store.ListReviewLogs(ctx, &store.FindReviewLog{
		UserID:         &userID,
		CreatedTsAfter: &since,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list review logs")
	}

	// Day buckets follow the clock's location so log rows and grid cells
	// agree on date boundaries.
	counts := make(map[string]int32, days)
	for _, log := range logs {
		counts[dayKey(time.Unix(log.CreatedTs, 0).In(now.Location()))]++
	}

	cells := make([]*HeatmapCell, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := dayKey(now.AddDate(0, 0, -i))
		cells = append(cells, &HeatmapCell{Date: date, Count: counts[date]})
	}
	return cells, nil
}

// GetQuestionStats returns the per-question summary with its full review
// history, newest first.
func (s *Service) GetQuestionStats(ctx context.Context, userID int32, questionUID string) (*QuestionStats, error) {
	question, err := s.getOwnedQuestion(ctx, userID, questionUID)
	if err != nil {
		return nil, err
	}
	logs, err := s.store.ListReviewLogs(ctx, &store.FindReviewLog{
		QuestionID: &question.ID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list review logs")
	}

	mastered := 0
	for _, log := range logs {
		if log.Status == store.ReviewMastered {
			mastered++
		}
	}
	rate := 0.0
	if len(logs) > 0 {
		rate = float64(mastered) / float64(len(logs))
	}

	return &QuestionStats{
		QuestionUID:   question.UID,
		MasteryLevel:  question.MasteryLevel,
		PracticeCount: question.PracticeCount,
		TimeSpent:     question.TotalTimeSpent,
		MasteredRate:  rate,
		NextReviewTs:  question.NextReviewTs,
		History:       logs,
	}, nil
}

// calculateStreaks derives the current and longest run of consecutive
// active days from the review log. The current streak counts backwards
// from today; a day with no reviews ends it, except that today itself
// being empty does not break a streak that ran through yesterday.
func calculateStreaks(logs []*store.ReviewLog, now time.Time) (current, longest int32) {
	if len(logs) == 0 {
		return 0, 0
	}

	active := make(map[string]bool, len(logs))
	var earliest time.Time
	for _, log := range logs {
		created := time.Unix(log.CreatedTs, 0).In(now.Location())
		active[dayKey(created)] = true
		if earliest.IsZero() || created.Before(earliest) {
			earliest = created
		}
	}

	// Current streak, walking backwards from today.
	day := startOfDay(now)
	if !active[dayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}
	for active[dayKey(day)] {
		current++
		day = day.AddDate(0, 0, -1)
	}

	// Longest streak, walking forward over the whole ledger.
	run := int32(0)
	for day := startOfDay(earliest); !day.After(now); day = day.AddDate(0, 0, 1) {
		if active[dayKey(day)] {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return current, longest
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
