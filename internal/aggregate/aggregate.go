// Package aggregate computes the per-day statistical aggregations that
// feed the risk scorer: district baselines and operator daily metrics.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fieldsight/sentinel/internal/domain"
)

// Service runs day-windowed aggregations over the activity record store.
type Service struct {
	repo domain.Repository
}

// NewService creates a new aggregation service.
func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

// ComputeDistrictBaselines scans the UTC day for the given date, groups
// records by district and returns one baseline per district with records.
// Districts with no records produce no baseline. The result is sorted by
// district so repeated runs over unchanged data are bit-identical.
func (s *Service) ComputeDistrictBaselines(ctx context.Context, date time.Time) ([]*domain.DistrictBaseline, error) {
	from, to := domain.DayWindow(date)

	records, err := s.repo.ListActivityByWindow(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to scan activity records: %w", err)
	}

	groups := make(map[string][]*domain.ActivityRecord)
	for _, rec := range records {
		groups[rec.District] = append(groups[rec.District], rec)
	}

	dateStr := from.Format("2006-01-02")
	baselines := make([]*domain.DistrictBaseline, 0, len(groups))
	for district, group := range groups {
		meanDur, stdDevDur, biometricRate, duplicateRate, hourStdDev := groupStats(group)
		baselines = append(baselines, &domain.DistrictBaseline{
			District: district,
			Date:     dateStr,
			Metrics: domain.BaselineMetrics{
				MeanDurationSec:        meanDur,
				StdDevDurationSec:      stdDevDur,
				BiometricExceptionRate: biometricRate,
				DuplicateErrorRate:     duplicateRate,
				ActivityHourStdDev:     hourStdDev,
			},
		})
	}

	sort.Slice(baselines, func(i, j int) bool {
		return baselines[i].District < baselines[j].District
	})

	return baselines, nil
}

// RunBaselineAggregation computes and persists the district baselines for
// a date, upserting each row keyed by (district, date). Re-running for the
// same date fully overwrites that date's baselines.
func (s *Service) RunBaselineAggregation(ctx context.Context, date time.Time) (int, error) {
	baselines, err := s.ComputeDistrictBaselines(ctx, date)
	if err != nil {
		return 0, err
	}

	for _, b := range baselines {
		if err := s.repo.SaveBaseline(ctx, b); err != nil {
			return 0, fmt.Errorf("failed to save baseline for district %s: %w", b.District, err)
		}
	}

	slog.Debug("district baselines updated",
		"date", date.Format("2006-01-02"),
		"districts", len(baselines),
	)

	return len(baselines), nil
}

// ComputeOperatorMetrics scans the same UTC day window grouped by operator
// and returns each operator's daily metrics. An operator's district is the
// district of their earliest record that day, which keeps the pick
// deterministic if an operator appears in more than one district.
// Operators with no records for the date are absent from the result.
func (s *Service) ComputeOperatorMetrics(ctx context.Context, date time.Time) ([]*domain.OperatorDailyMetrics, error) {
	from, to := domain.DayWindow(date)

	records, err := s.repo.ListActivityByWindow(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to scan activity records: %w", err)
	}

	// Records come back ordered by timestamp, so the first record appended
	// to each group is the operator's earliest of the day.
	groups := make(map[string][]*domain.ActivityRecord)
	for _, rec := range records {
		groups[rec.OperatorID] = append(groups[rec.OperatorID], rec)
	}

	dateStr := from.Format("2006-01-02")
	metrics := make([]*domain.OperatorDailyMetrics, 0, len(groups))
	for operatorID, group := range groups {
		meanDur, _, biometricRate, duplicateRate, hourStdDev := groupStats(group)
		metrics = append(metrics, &domain.OperatorDailyMetrics{
			OperatorID: operatorID,
			District:   group[0].District,
			Date:       dateStr,
			Metrics: domain.OperatorMetrics{
				AvgDurationSec:         meanDur,
				BiometricExceptionRate: biometricRate,
				DuplicateErrorRate:     duplicateRate,
				ActivityHourStdDev:     hourStdDev,
			},
		})
	}

	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].OperatorID < metrics[j].OperatorID
	})

	return metrics, nil
}
