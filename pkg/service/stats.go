package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"qa-review-tracker/pkg/models"
	"qa-review-tracker/pkg/repository"
)

// StatsService derives pass-rate, dispute-rate and trend statistics from
// stored evaluations and disputes. Everything is recomputed on demand;
// nothing is cached or mutated.
type StatsService struct {
	evals    repository.EvaluationRepository
	disputes repository.DisputeRepository
	settings *SettingsService
}

func NewStatsService(evals repository.EvaluationRepository, disputes repository.DisputeRepository, settings *SettingsService) *StatsService {
	return &StatsService{evals: evals, disputes: disputes, settings: settings}
}

// EvaluationStatistics aggregates evaluations in an optional date window
func (s *StatsService) EvaluationStatistics(ctx context.Context, from, to *time.Time) (*models.EvaluationStatistics, error) {
	evals, err := s.evals.List(ctx, repository.EvaluationFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluations: %w", err)
	}

	passing := s.settings.PassingScorePercentage(ctx)
	stats := &models.EvaluationStatistics{
		Total:        len(evals),
		PassingScore: passing,
	}
	if len(evals) == 0 {
		return stats, nil
	}

	disputes, err := s.disputes.List(ctx, repository.DisputeFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to load disputes: %w", err)
	}
	disputedEvals := make(map[string]bool)
	for _, d := range disputes {
		disputedEvals[d.EvaluationID] = true
	}

	var passed, disputed int
	var scoreSum float64
	for _, e := range evals {
		pct := e.ScorePercentage()
		scoreSum += pct
		if pct >= passing {
			passed++
		}
		if disputedEvals[e.ID] {
			disputed++
		}
	}

	total := float64(len(evals))
	stats.PassRate = round1(float64(passed) / total * 100)
	stats.DisputeRate = round1(float64(disputed) / total * 100)
	stats.AverageScore = round1(scoreSum / total)
	return stats, nil
}

// Trend buckets evaluations and disputes by week or month, sorted
// ascending by bucket key
func (s *StatsService) Trend(ctx context.Context, period string, from, to *time.Time) ([]models.TrendBucket, error) {
	if period != "week" && period != "month" {
		return nil, fmt.Errorf("invalid trend period: %s", period)
	}

	evals, err := s.evals.List(ctx, repository.EvaluationFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluations: %w", err)
	}
	disputes, err := s.disputes.List(ctx, repository.DisputeFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to load disputes: %w", err)
	}

	type bucketAccum struct {
		evals    int
		disputes int
		scoreSum float64
	}
	buckets := make(map[string]*bucketAccum)
	get := func(t time.Time) *bucketAccum {
		key := bucketKey(t, period)
		b, ok := buckets[key]
		if !ok {
			b = &bucketAccum{}
			buckets[key] = b
		}
		return b
	}

	for _, e := range evals {
		b := get(e.Date)
		b.evals++
		b.scoreSum += e.ScorePercentage()
	}
	for _, d := range disputes {
		get(d.SubmissionDate).disputes++
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]models.TrendBucket, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		bucket := models.TrendBucket{
			Bucket:      k,
			Evaluations: b.evals,
			Disputes:    b.disputes,
		}
		if b.evals > 0 {
			bucket.AverageScore = round1(b.scoreSum / float64(b.evals))
		}
		result = append(result, bucket)
	}
	return result, nil
}

// bucketKey returns the start date of the containing week (Monday) or
// month in YYYY-MM-DD form, which sorts chronologically as a string
func bucketKey(t time.Time, period string) string {
	if period == "month" {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).Format("2006-01-02")
	}
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location()).Format("2006-01-02")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
