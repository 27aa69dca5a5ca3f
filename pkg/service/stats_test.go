package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"qa-review-tracker/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type statsFixture struct {
	evals    *MockEvaluationRepository
	disputes *MockDisputeRepository
	settings *MockSettingsRepository
	service  *StatsService
}

func newStatsFixture() *statsFixture {
	f := &statsFixture{
		evals:    new(MockEvaluationRepository),
		disputes: new(MockDisputeRepository),
		settings: new(MockSettingsRepository),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := new(MockUserRepository)
	perms := NewPermissionService(users)
	settingsSvc := NewSettingsService(f.settings, perms, logger)
	f.service = NewStatsService(f.evals, f.disputes, settingsSvc)
	return f
}

func scoredEvaluation(id string, score, maxPossible int, date time.Time) models.Evaluation {
	e := completedEvaluation(id, score, maxPossible)
	e.Date = date
	return *e
}

func TestEvaluationStatistics(t *testing.T) {
	f := newStatsFixture()
	ctx := context.Background()
	now := time.Now()

	f.settings.On("Get", mock.Anything, models.SettingPassingScorePercentage).Return("80", nil)
	f.evals.On("List", ctx, mock.Anything).Return([]models.Evaluation{
		scoredEvaluation("ev-1", 90, 100, now), // 90%, pass
		scoredEvaluation("ev-2", 80, 100, now), // 80%, pass on the boundary
		scoredEvaluation("ev-3", 70, 100, now), // 70%, fail
		scoredEvaluation("ev-4", 60, 100, now), // 60%, fail
	}, nil)
	f.disputes.On("List", ctx, mock.Anything).Return([]models.Dispute{
		{ID: "d-1", EvaluationID: "ev-3", Status: models.DisputeRejected},
		{ID: "d-2", EvaluationID: "ev-3", Status: models.DisputePending},
	}, nil)

	stats, err := f.service.EvaluationStatistics(ctx, nil, nil)

	assert.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 50.0, stats.PassRate)
	// ev-3 has two disputes but counts once
	assert.Equal(t, 25.0, stats.DisputeRate)
	assert.Equal(t, 75.0, stats.AverageScore)
	assert.Equal(t, 80.0, stats.PassingScore)
}

func TestEvaluationStatisticsEmpty(t *testing.T) {
	f := newStatsFixture()
	ctx := context.Background()

	f.settings.On("Get", mock.Anything, models.SettingPassingScorePercentage).Return("80", nil)
	f.evals.On("List", ctx, mock.Anything).Return([]models.Evaluation{}, nil)

	stats, err := f.service.EvaluationStatistics(ctx, nil, nil)

	assert.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.PassRate)
	f.disputes.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestBucketKey(t *testing.T) {
	tests := []struct {
		name   string
		date   time.Time
		period string
		want   string
	}{
		{"wednesday maps to monday", time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC), "week", "2024-03-11"},
		{"monday maps to itself", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), "week", "2024-03-11"},
		{"sunday maps to previous monday", time.Date(2024, 3, 17, 23, 59, 0, 0, time.UTC), "week", "2024-03-11"},
		{"week spanning month boundary", time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC), "week", "2024-04-01"},
		{"mid-month maps to the first", time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC), "month", "2024-03-01"},
		{"first of month maps to itself", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "month", "2024-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bucketKey(tt.date, tt.period))
		})
	}
}

func TestTrendBucketsSortedAscending(t *testing.T) {
	f := newStatsFixture()
	ctx := context.Background()

	f.evals.On("List", ctx, mock.Anything).Return([]models.Evaluation{
		scoredEvaluation("ev-1", 90, 100, time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)),
		scoredEvaluation("ev-2", 70, 100, time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)),
		scoredEvaluation("ev-3", 80, 100, time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)),
	}, nil)
	f.disputes.On("List", ctx, mock.Anything).Return([]models.Dispute{
		{ID: "d-1", EvaluationID: "ev-2", SubmissionDate: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)},
	}, nil)

	buckets, err := f.service.Trend(ctx, "week", nil, nil)

	assert.NoError(t, err)
	assert.Len(t, buckets, 2)
	assert.Equal(t, "2024-03-11", buckets[0].Bucket)
	assert.Equal(t, 2, buckets[0].Evaluations)
	assert.Equal(t, 1, buckets[0].Disputes)
	assert.Equal(t, 75.0, buckets[0].AverageScore)
	assert.Equal(t, "2024-03-18", buckets[1].Bucket)
	assert.Equal(t, 1, buckets[1].Evaluations)
	assert.Equal(t, 0, buckets[1].Disputes)
}

func TestTrendRejectsUnknownPeriod(t *testing.T) {
	f := newStatsFixture()

	_, err := f.service.Trend(context.Background(), "quarter", nil, nil)

	assert.Error(t, err)
}

func TestTrendCountsDisputesInEmptyEvaluationBucket(t *testing.T) {
	f := newStatsFixture()
	ctx := context.Background()

	f.evals.On("List", ctx, mock.Anything).Return([]models.Evaluation{}, nil)
	f.disputes.On("List", ctx, mock.Anything).Return([]models.Dispute{
		{ID: "d-1", EvaluationID: "ev-1", SubmissionDate: time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)},
	}, nil)

	buckets, err := f.service.Trend(ctx, "month", nil, nil)

	assert.NoError(t, err)
	assert.Len(t, buckets, 1)
	assert.Equal(t, "2024-05-01", buckets[0].Bucket)
	assert.Equal(t, 0, buckets[0].Evaluations)
	assert.Equal(t, 1, buckets[0].Disputes)
	assert.Equal(t, 0.0, buckets[0].AverageScore)
}
