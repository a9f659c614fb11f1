package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixitapp/fixit/store"
)

func addLog(m *mockStore, userID, questionID int32, status store.ReviewStatus, createdTs int64) {
	m.logs = append(m.logs, &store.ReviewLog{
		ID:         m.nextID,
		QuestionID: questionID,
		UserID:     userID,
		Status:     status,
		CreatedTs:  createdTs,
	})
	m.nextID++
}

func TestGetOverview(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })

	due := m.addQuestion(userID, "q-due", 2, ts(now.AddDate(0, 0, -1)))
	m.addQuestion(userID, "q-later", 4, ts(now.AddDate(0, 0, 3)))
	fresh := m.addQuestion(userID, "q-fresh", 0, nil)
	fresh.TotalTimeSpent = 120
	due.TotalTimeSpent = 30

	// Two reviews today, one yesterday.
	addLog(m, userID, due.ID, store.ReviewMastered, now.Add(-2*time.Hour).Unix())
	addLog(m, userID, due.ID, store.ReviewFuzzy, now.Add(-1*time.Hour).Unix())
	addLog(m, userID, fresh.ID, store.ReviewForgotten, now.AddDate(0, 0, -1).Unix())

	svc := newTestService(m, now)
	overview, err := svc.GetOverview(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, int32(3), overview.TotalQuestions)
	assert.Equal(t, int32(2), overview.DueToday) // the overdue one plus the never-reviewed one
	assert.Equal(t, int32(2), overview.ReviewedToday)
	assert.Equal(t, int32(3), overview.TotalReviews)
	assert.Equal(t, int32(1), overview.MasteryCounts[0])
	assert.Equal(t, int32(1), overview.MasteryCounts[2])
	assert.Equal(t, int32(1), overview.MasteryCounts[4])
	assert.Equal(t, int64(150), overview.TotalTimeSpent)
	assert.Equal(t, int32(2), overview.CurrentStreak)
	assert.Equal(t, int32(2), overview.LongestStreak)
}

func TestStreaks(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

	day := func(offset int) int64 {
		return now.AddDate(0, 0, offset).Unix()
	}
	logAt := func(ts int64) *store.ReviewLog {
		return &store.ReviewLog{Status: store.ReviewMastered, CreatedTs: ts}
	}

	tests := []struct {
		name        string
		logs        []*store.ReviewLog
		wantCurrent int32
		wantLongest int32
	}{
		{
			name:        "No logs",
			logs:        nil,
			wantCurrent: 0,
			wantLongest: 0,
		},
		{
			name:        "Only today",
			logs:        []*store.ReviewLog{logAt(day(0))},
			wantCurrent: 1,
			wantLongest: 1,
		},
		{
			name: "Today plus two days back",
			logs: []*store.ReviewLog{
				logAt(day(0)), logAt(day(-1)), logAt(day(-2)),
			},
			wantCurrent: 3,
			wantLongest: 3,
		},
		{
			name: "Empty today keeps yesterday's streak",
			logs: []*store.ReviewLog{
				logAt(day(-1)), logAt(day(-2)),
			},
			wantCurrent: 2,
			wantLongest: 2,
		},
		{
			name: "Gap two days ago breaks the current run",
			logs: []*store.ReviewLog{
				logAt(day(0)), logAt(day(-1)),
				logAt(day(-3)), logAt(day(-4)), logAt(day(-5)), logAt(day(-6)),
			},
			wantCurrent: 2,
			wantLongest: 4,
		},
		{
			name: "Old streak only",
			logs: []*store.ReviewLog{
				logAt(day(-10)), logAt(day(-11)), logAt(day(-12)),
			},
			wantCurrent: 0,
			wantLongest: 3,
		},
		{
			name: "Multiple reviews per day count once",
			logs: []*store.ReviewLog{
				logAt(day(0)), logAt(day(0)), logAt(day(0)),
			},
			wantCurrent: 1,
			wantLongest: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := calculateStreaks(tt.logs, now)
			assert.Equal(t, tt.wantCurrent, current, "current streak")
			assert.Equal(t, tt.wantLongest, longest, "longest streak")
		})
	}
}

func TestGetHeatmap(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	q := m.addQuestion(userID, "q-1", 0, nil)

	addLog(m, userID, q.ID, store.ReviewMastered, now.Unix())
	addLog(m, userID, q.ID, store.ReviewFuzzy, now.Add(-time.Hour).Unix())
	addLog(m, userID, q.ID, store.ReviewForgotten, now.AddDate(0, 0, -2).Unix())
	// Outside the requested window.
	addLog(m, userID, q.ID, store.ReviewMastered, now.AddDate(0, 0, -30).Unix())

	svc := newTestService(m, now)
	cells, err := svc.GetHeatmap(ctx, userID, 7)
	require.NoError(t, err)
	require.Len(t, cells, 7)

	// Oldest first, last cell is today.
	assert.Equal(t, "2025-06-09", cells[0].Date)
	assert.Equal(t, "2025-06-15", cells[6].Date)
	assert.Equal(t, int32(2), cells[6].Count)
	assert.Equal(t, int32(1), cells[4].Count)
	assert.Equal(t, int32(0), cells[5].Count)

	total := int32(0)
	for _, cell := range cells {
		total += cell.Count
	}
	assert.Equal(t, int32(3), total)
}

func TestGetQuestionStats(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	q := m.addQuestion(userID, "q-1", 3, ts(now.AddDate(0, 0, 7)))
	q.PracticeCount = 4
	q.TotalTimeSpent = 300

	addLog(m, userID, q.ID, store.ReviewMastered, now.AddDate(0, 0, -10).Unix())
	addLog(m, userID, q.ID, store.ReviewForgotten, now.AddDate(0, 0, -7).Unix())
	addLog(m, userID, q.ID, store.ReviewMastered, now.AddDate(0, 0, -3).Unix())
	addLog(m, userID, q.ID, store.ReviewMastered, now.AddDate(0, 0, -1).Unix())

	svc := newTestService(m, now)
	stats, err := svc.GetQuestionStats(ctx, userID, "q-1")
	require.NoError(t, err)

	assert.Equal(t, "q-1", stats.QuestionUID)
	assert.Equal(t, int32(3), stats.MasteryLevel)
	assert.Equal(t, int32(4), stats.PracticeCount)
	assert.Equal(t, int32(300), stats.TimeSpent)
	assert.InDelta(t, 0.75, stats.MasteredRate, 1e-9)
	require.Len(t, stats.History, 4)

	_, err = svc.GetQuestionStats(ctx, userID, "q-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetQuestionStatsNoHistory(t *testing.T) {
	ctx := context.Background()
	userID := int32(1)
	now := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	m := newMockStore(func() time.Time { return now })
	m.addQuestion(userID, "q-1", 0, nil)

	svc := newTestService(m, now)
	stats, err := svc.GetQuestionStats(ctx, userID, "q-1")
	require.NoError(t, err)
	assert.Zero(t, stats.MasteredRate)
	assert.Empty(t, stats.History)
}
