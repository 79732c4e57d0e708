package aggregate

import (
	"context"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/fieldsight/sentinel/internal/domain"
)

// memRepo serves canned activity records and captures saved baselines.
type memRepo struct {
	records   []*domain.ActivityRecord
	baselines map[string]*domain.DistrictBaseline
}

func newMemRepo(records []*domain.ActivityRecord) *memRepo {
	return &memRepo{
		records:   records,
		baselines: make(map[string]*domain.DistrictBaseline),
	}
}

func (m *memRepo) SaveActivity(ctx context.Context, rec *domain.ActivityRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memRepo) ListActivityByWindow(ctx context.Context, from, to time.Time) ([]*domain.ActivityRecord, error) {
	var out []*domain.ActivityRecord
	for _, rec := range m.records {
		if !rec.Timestamp.Before(from) && !rec.Timestamp.After(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memRepo) SaveBaseline(ctx context.Context, b *domain.DistrictBaseline) error {
	m.baselines[b.District+"|"+b.Date] = b
	return nil
}

func (m *memRepo) GetBaseline(ctx context.Context, district, date string) (*domain.DistrictBaseline, error) {
	return m.baselines[district+"|"+date], nil
}

func (m *memRepo) ListBaselinesByDate(ctx context.Context, date string) ([]*domain.DistrictBaseline, error) {
	var out []*domain.DistrictBaseline
	for _, b := range m.baselines {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memRepo) UpsertProfile(ctx context.Context, p *domain.RiskProfile) error { return nil }

func (m *memRepo) GetProfile(ctx context.Context, operatorID string) (*domain.RiskProfile, error) {
	return nil, nil
}

func (m *memRepo) ListProfiles(ctx context.Context, q domain.ProfileQuery) (*domain.ProfilePage, error) {
	return &domain.ProfilePage{}, nil
}

func (m *memRepo) SummarizeProfiles(ctx context.Context, district string) (*domain.RiskSummary, error) {
	return &domain.RiskSummary{}, nil
}

func (m *memRepo) Ping(ctx context.Context) error { return nil }
func (m *memRepo) Close() error                   { return nil }

func rec(operator, district string, hour int, dur float64, biometric bool, errCode string) *domain.ActivityRecord {
	return &domain.ActivityRecord{
		ID:                 operator + "-" + strconv.Itoa(hour),
		OperatorID:         operator,
		District:           district,
		EnrolmentType:      domain.EnrolmentNew,
		DurationSec:        dur,
		BiometricException: biometric,
		ErrorCode:          errCode,
		Timestamp:          time.Date(2026, 3, 15, hour, 0, 0, 0, time.UTC),
	}
}

func TestStats(t *testing.T) {
	t.Run("Mean", func(t *testing.T) {
		if got := mean([]float64{2, 4, 6}); got != 4 {
			t.Errorf("mean = %v, want 4", got)
		}
		if got := mean(nil); got != 0 {
			t.Errorf("mean of empty = %v, want 0", got)
		}
	})

	t.Run("PopStdDev", func(t *testing.T) {
		// Population stddev of {2, 4, 4, 4, 5, 5, 7, 9} is exactly 2.
		got := popStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
		if math.Abs(got-2) > 1e-9 {
			t.Errorf("popStdDev = %v, want 2", got)
		}
	})

	t.Run("PopStdDevSingleSample", func(t *testing.T) {
		if got := popStdDev([]float64{42}); got != 0 {
			t.Errorf("popStdDev of single sample = %v, want 0", got)
		}
	})
}

func TestComputeDistrictBaselines(t *testing.T) {
	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	records := []*domain.ActivityRecord{
		rec("op-1", "North", 9, 100, false, ""),
		rec("op-1", "North", 10, 200, true, ""),
		rec("op-2", "North", 11, 300, false, domain.ErrorCodeDuplicate),
		rec("op-3", "North", 12, 400, true, "500"), // non-duplicate error
		rec("op-4", "South", 9, 150, false, ""),
		// Next day, excluded from the window
		{
			ID: "x", OperatorID: "op-5", District: "East",
			DurationSec: 999,
			Timestamp:   time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		},
	}

	svc := NewService(newMemRepo(records))
	baselines, err := svc.ComputeDistrictBaselines(context.Background(), date)
	if err != nil {
		t.Fatalf("ComputeDistrictBaselines failed: %v", err)
	}

	if len(baselines) != 2 {
		t.Fatalf("expected 2 districts, got %d", len(baselines))
	}

	// Sorted by district
	if baselines[0].District != "North" || baselines[1].District != "South" {
		t.Fatalf("unexpected order: %s, %s", baselines[0].District, baselines[1].District)
	}

	north := baselines[0].Metrics
	if north.MeanDurationSec != 250 {
		t.Errorf("North mean duration = %v, want 250", north.MeanDurationSec)
	}
	// Population stddev of {100,200,300,400}
	want := math.Sqrt((150*150 + 50*50 + 50*50 + 150*150) / 4.0)
	if math.Abs(north.StdDevDurationSec-want) > 1e-9 {
		t.Errorf("North duration stddev = %v, want %v", north.StdDevDurationSec, want)
	}
	// 2 of 4 biometric exceptions, 1 of 4 duplicate errors, as percent
	if north.BiometricExceptionRate != 50 {
		t.Errorf("North biometric rate = %v, want 50", north.BiometricExceptionRate)
	}
	if north.DuplicateErrorRate != 25 {
		t.Errorf("North duplicate rate = %v, want 25", north.DuplicateErrorRate)
	}

	// Single record: no spread
	south := baselines[1].Metrics
	if south.StdDevDurationSec != 0 || south.ActivityHourStdDev != 0 {
		t.Errorf("South stddevs should be 0, got %v / %v", south.StdDevDurationSec, south.ActivityHourStdDev)
	}

	if baselines[0].Date != "2026-03-15" {
		t.Errorf("baseline date = %s, want 2026-03-15", baselines[0].Date)
	}
}

func TestRunBaselineAggregationPersists(t *testing.T) {
	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := newMemRepo([]*domain.ActivityRecord{
		rec("op-1", "North", 9, 100, false, ""),
		rec("op-2", "South", 10, 200, false, ""),
	})

	svc := NewService(repo)
	count, err := svc.RunBaselineAggregation(context.Background(), date)
	if err != nil {
		t.Fatalf("RunBaselineAggregation failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 baselines persisted, got %d", count)
	}
	if len(repo.baselines) != 2 {
		t.Errorf("repo holds %d baselines", len(repo.baselines))
	}

	// Re-running over unchanged data is a no-op overwrite
	count, err = svc.RunBaselineAggregation(context.Background(), date)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if count != 2 || len(repo.baselines) != 2 {
		t.Errorf("re-run changed baseline count: %d persisted, %d stored", count, len(repo.baselines))
	}
}

func TestComputeOperatorMetrics(t *testing.T) {
	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	records := []*domain.ActivityRecord{
		rec("op-2", "South", 8, 120, false, ""), // earliest record for op-2
		rec("op-1", "North", 9, 100, true, ""),
		rec("op-1", "North", 11, 300, false, domain.ErrorCodeDuplicate),
		rec("op-2", "North", 15, 180, false, ""), // op-2 moved districts midday
	}

	svc := NewService(newMemRepo(records))
	metrics, err := svc.ComputeOperatorMetrics(context.Background(), date)
	if err != nil {
		t.Fatalf("ComputeOperatorMetrics failed: %v", err)
	}

	if len(metrics) != 2 {
		t.Fatalf("expected 2 operators, got %d", len(metrics))
	}

	// Sorted by operator ID
	op1, op2 := metrics[0], metrics[1]
	if op1.OperatorID != "op-1" || op2.OperatorID != "op-2" {
		t.Fatalf("unexpected order: %s, %s", op1.OperatorID, op2.OperatorID)
	}

	if op1.Metrics.AvgDurationSec != 200 {
		t.Errorf("op-1 avg duration = %v, want 200", op1.Metrics.AvgDurationSec)
	}
	if op1.Metrics.BiometricExceptionRate != 50 {
		t.Errorf("op-1 biometric rate = %v, want 50", op1.Metrics.BiometricExceptionRate)
	}
	if op1.Metrics.DuplicateErrorRate != 50 {
		t.Errorf("op-1 duplicate rate = %v, want 50", op1.Metrics.DuplicateErrorRate)
	}

	// District attribution follows the earliest record of the day
	if op2.District != "South" {
		t.Errorf("op-2 district = %s, want South (earliest record)", op2.District)
	}
}

func TestComputeOperatorMetricsEmptyDay(t *testing.T) {
	svc := NewService(newMemRepo(nil))
	metrics, err := svc.ComputeOperatorMetrics(context.Background(), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ComputeOperatorMetrics failed: %v", err)
	}
	if len(metrics) != 0 {
		t.Errorf("expected no metrics for empty day, got %d", len(metrics))
	}
}
