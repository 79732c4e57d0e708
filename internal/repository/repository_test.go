package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/fieldsight/sentinel/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "sentinel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestActivityRecords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	records := []*domain.ActivityRecord{
		{
			ID:            "rec-001",
			OperatorID:    "op-001",
			StationID:     "STN_A01",
			District:      "North",
			EnrolmentType: domain.EnrolmentNew,
			DurationSec:   185.5,
			Timestamp:     day.Add(9 * time.Hour),
		},
		{
			ID:                 "rec-002",
			OperatorID:         "op-001",
			StationID:          "STN_A01",
			District:           "North",
			EnrolmentType:      domain.EnrolmentUpdate,
			DurationSec:        40,
			BiometricException: true,
			ErrorCode:          domain.ErrorCodeDuplicate,
			Timestamp:          day.Add(14 * time.Hour),
		},
		{
			// Outside the window
			ID:            "rec-003",
			OperatorID:    "op-002",
			StationID:     "STN_B02",
			District:      "South",
			EnrolmentType: domain.EnrolmentNew,
			DurationSec:   200,
			Timestamp:     day.Add(25 * time.Hour),
		},
	}

	for _, rec := range records {
		if err := repo.SaveActivity(ctx, rec); err != nil {
			t.Fatalf("SaveActivity failed: %v", err)
		}
	}

	t.Run("WindowedList", func(t *testing.T) {
		from, to := domain.DayWindow(day)
		got, err := repo.ListActivityByWindow(ctx, from, to)
		if err != nil {
			t.Fatalf("ListActivityByWindow failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 records in window, got %d", len(got))
		}

		// Ordered ascending by timestamp
		if got[0].ID != "rec-001" || got[1].ID != "rec-002" {
			t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
		}

		if !got[1].BiometricException {
			t.Error("biometric exception flag lost")
		}
		if got[1].ErrorCode != domain.ErrorCodeDuplicate {
			t.Errorf("expected error code %s, got %s", domain.ErrorCodeDuplicate, got[1].ErrorCode)
		}
		if got[0].DurationSec != 185.5 {
			t.Errorf("expected duration 185.5, got %f", got[0].DurationSec)
		}
	})

	t.Run("TimestampTieBrokenByID", func(t *testing.T) {
		tieDay := day.AddDate(0, 0, 30)
		ties := []*domain.ActivityRecord{
			{
				ID:            "tie-b",
				OperatorID:    "op-003",
				StationID:     "STN_C01",
				District:      "East",
				EnrolmentType: domain.EnrolmentNew,
				DurationSec:   150,
				Timestamp:     tieDay.Add(9 * time.Hour),
			},
			{
				ID:            "tie-a",
				OperatorID:    "op-003",
				StationID:     "STN_C02",
				District:      "West",
				EnrolmentType: domain.EnrolmentNew,
				DurationSec:   150,
				Timestamp:     tieDay.Add(9 * time.Hour),
			},
		}
		for _, rec := range ties {
			if err := repo.SaveActivity(ctx, rec); err != nil {
				t.Fatalf("SaveActivity failed: %v", err)
			}
		}

		from, to := domain.DayWindow(tieDay)
		got, err := repo.ListActivityByWindow(ctx, from, to)
		if err != nil {
			t.Fatalf("ListActivityByWindow failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 records, got %d", len(got))
		}
		if got[0].ID != "tie-a" || got[1].ID != "tie-b" {
			t.Errorf("equal timestamps not ordered by id: %s, %s", got[0].ID, got[1].ID)
		}
	})

	t.Run("EmptyWindow", func(t *testing.T) {
		from, to := domain.DayWindow(day.AddDate(0, 0, 10))
		got, err := repo.ListActivityByWindow(ctx, from, to)
		if err != nil {
			t.Fatalf("ListActivityByWindow failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty window, got %d records", len(got))
		}
	})

	t.Run("RejectsIncomplete", func(t *testing.T) {
		err := repo.SaveActivity(ctx, &domain.ActivityRecord{ID: "rec-bad"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestBaselines(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	baseline := &domain.DistrictBaseline{
		District: "North",
		Date:     "2026-03-15",
		Metrics: domain.BaselineMetrics{
			MeanDurationSec:        180,
			StdDevDurationSec:      30,
			BiometricExceptionRate: 5,
			DuplicateErrorRate:     3,
			ActivityHourStdDev:     1.5,
		},
	}

	if err := repo.SaveBaseline(ctx, baseline); err != nil {
		t.Fatalf("SaveBaseline failed: %v", err)
	}

	t.Run("Get", func(t *testing.T) {
		got, err := repo.GetBaseline(ctx, "North", "2026-03-15")
		if err != nil {
			t.Fatalf("GetBaseline failed: %v", err)
		}
		if got.Metrics.MeanDurationSec != 180 {
			t.Errorf("expected mean 180, got %f", got.Metrics.MeanDurationSec)
		}
		if got.Metrics.ActivityHourStdDev != 1.5 {
			t.Errorf("expected hour stddev 1.5, got %f", got.Metrics.ActivityHourStdDev)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetBaseline(ctx, "North", "2026-03-16")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		updated := &domain.DistrictBaseline{
			District: "North",
			Date:     "2026-03-15",
			Metrics: domain.BaselineMetrics{
				MeanDurationSec:   200,
				StdDevDurationSec: 25,
			},
		}
		if err := repo.SaveBaseline(ctx, updated); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		got, err := repo.GetBaseline(ctx, "North", "2026-03-15")
		if err != nil {
			t.Fatalf("GetBaseline failed: %v", err)
		}
		if got.Metrics.MeanDurationSec != 200 {
			t.Errorf("expected replaced mean 200, got %f", got.Metrics.MeanDurationSec)
		}
		// Full-replace semantics: unset rate columns zeroed
		if got.Metrics.BiometricExceptionRate != 0 {
			t.Errorf("expected rate reset to 0, got %f", got.Metrics.BiometricExceptionRate)
		}
	})

	t.Run("ListByDate", func(t *testing.T) {
		south := &domain.DistrictBaseline{
			District: "South",
			Date:     "2026-03-15",
			Metrics:  domain.BaselineMetrics{MeanDurationSec: 150},
		}
		if err := repo.SaveBaseline(ctx, south); err != nil {
			t.Fatalf("SaveBaseline failed: %v", err)
		}

		got, err := repo.ListBaselinesByDate(ctx, "2026-03-15")
		if err != nil {
			t.Fatalf("ListBaselinesByDate failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 baselines, got %d", len(got))
		}
		// Ordered by district
		if got[0].District != "North" || got[1].District != "South" {
			t.Errorf("unexpected order: %s, %s", got[0].District, got[1].District)
		}
	})
}

func TestProfiles(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

	profiles := []*domain.RiskProfile{
		{
			OperatorID: "op-001",
			District:   "North",
			RiskScore:  85,
			RiskLevel:  domain.RiskCritical,
			Flags:      []string{domain.FlagImpossibleVelocity, domain.FlagDuplicateFinger},
			Metrics: domain.OperatorMetrics{
				AvgDurationSec:     25,
				DuplicateErrorRate: 42,
			},
			LastUpdated: now,
		},
		{
			OperatorID:  "op-002",
			District:    "North",
			RiskScore:   45,
			RiskLevel:   domain.RiskMedium,
			Flags:       []string{domain.FlagOddHourActivity},
			LastUpdated: now,
		},
		{
			OperatorID:  "op-003",
			District:    "South District",
			RiskScore:   5,
			RiskLevel:   domain.RiskLow,
			Flags:       []string{},
			LastUpdated: now,
		},
	}

	for _, p := range profiles {
		if err := repo.UpsertProfile(ctx, p); err != nil {
			t.Fatalf("UpsertProfile failed: %v", err)
		}
	}

	t.Run("Get", func(t *testing.T) {
		got, err := repo.GetProfile(ctx, "op-001")
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if got.RiskScore != 85 || got.RiskLevel != domain.RiskCritical {
			t.Errorf("unexpected profile: score=%d level=%s", got.RiskScore, got.RiskLevel)
		}
		if len(got.Flags) != 2 {
			t.Errorf("expected 2 flags, got %v", got.Flags)
		}
		if got.Metrics.DuplicateErrorRate != 42 {
			t.Errorf("metrics snapshot lost: %f", got.Metrics.DuplicateErrorRate)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := repo.GetProfile(ctx, "op-missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("EmptyFlagsRoundTrip", func(t *testing.T) {
		got, err := repo.GetProfile(ctx, "op-003")
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if got.Flags == nil || len(got.Flags) != 0 {
			t.Errorf("expected empty non-nil flags, got %v", got.Flags)
		}
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		replacement := &domain.RiskProfile{
			OperatorID:  "op-002",
			District:    "East",
			RiskScore:   10,
			RiskLevel:   domain.RiskLow,
			Flags:       []string{},
			LastUpdated: now.Add(24 * time.Hour),
		}
		if err := repo.UpsertProfile(ctx, replacement); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		got, err := repo.GetProfile(ctx, "op-002")
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if got.RiskScore != 10 || got.RiskLevel != domain.RiskLow || got.District != "East" {
			t.Errorf("profile not replaced: %+v", got)
		}
		if len(got.Flags) != 0 {
			t.Errorf("old flags survived replace: %v", got.Flags)
		}

		// Restore for the listing subtests below
		if err := repo.UpsertProfile(ctx, profiles[1]); err != nil {
			t.Fatalf("restore failed: %v", err)
		}
	})

	t.Run("ListDefaults", func(t *testing.T) {
		page, err := repo.ListProfiles(ctx, domain.ProfileQuery{})
		if err != nil {
			t.Fatalf("ListProfiles failed: %v", err)
		}
		if page.TotalCount != 3 {
			t.Errorf("expected 3 profiles, got %d", page.TotalCount)
		}
		if page.Page != 1 {
			t.Errorf("expected page 1, got %d", page.Page)
		}
	})

	t.Run("ListByLevel", func(t *testing.T) {
		page, err := repo.ListProfiles(ctx, domain.ProfileQuery{RiskLevel: domain.RiskCritical})
		if err != nil {
			t.Fatalf("ListProfiles failed: %v", err)
		}
		if page.TotalCount != 1 || page.Profiles[0].OperatorID != "op-001" {
			t.Errorf("unexpected filter result: %+v", page)
		}
	})

	t.Run("ListByDistrictSubstring", func(t *testing.T) {
		page, err := repo.ListProfiles(ctx, domain.ProfileQuery{District: "south"})
		if err != nil {
			t.Fatalf("ListProfiles failed: %v", err)
		}
		if page.TotalCount != 1 || page.Profiles[0].OperatorID != "op-003" {
			t.Errorf("case-insensitive substring match failed: %+v", page)
		}
	})

	t.Run("SortByScoreDesc", func(t *testing.T) {
		page, err := repo.ListProfiles(ctx, domain.ProfileQuery{SortBy: "riskScore", SortDesc: true})
		if err != nil {
			t.Fatalf("ListProfiles failed: %v", err)
		}
		if page.Profiles[0].OperatorID != "op-001" || page.Profiles[2].OperatorID != "op-003" {
			t.Errorf("unexpected sort order: %s first", page.Profiles[0].OperatorID)
		}
	})

	t.Run("SortByLevelSeverity", func(t *testing.T) {
		page, err := repo.ListProfiles(ctx, domain.ProfileQuery{SortBy: "riskLevel", SortDesc: true})
		if err != nil {
			t.Fatalf("ListProfiles failed: %v", err)
		}
		var levels []domain.RiskLevel
		for _, p := range page.Profiles {
			levels = append(levels, p.RiskLevel)
		}
		if levels[0] != domain.RiskCritical || levels[2] != domain.RiskLow {
			t.Errorf("severity order wrong: %v", levels)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		page, err := repo.ListProfiles(ctx, domain.ProfileQuery{Page: 2, Limit: 2, SortBy: "operatorId"})
		if err != nil {
			t.Fatalf("ListProfiles failed: %v", err)
		}
		if page.TotalCount != 3 || page.TotalPages != 2 {
			t.Errorf("expected 3 total over 2 pages, got %d over %d", page.TotalCount, page.TotalPages)
		}
		if len(page.Profiles) != 1 {
			t.Errorf("expected 1 profile on page 2, got %d", len(page.Profiles))
		}
	})

	t.Run("Summary", func(t *testing.T) {
		summary, err := repo.SummarizeProfiles(ctx, "")
		if err != nil {
			t.Fatalf("SummarizeProfiles failed: %v", err)
		}
		if summary.Critical != 1 || summary.Medium != 1 || summary.Low != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
	})

	t.Run("SummaryDistrictFilter", func(t *testing.T) {
		summary, err := repo.SummarizeProfiles(ctx, "North")
		if err != nil {
			t.Fatalf("SummarizeProfiles failed: %v", err)
		}
		if summary.Critical != 1 || summary.Medium != 1 || summary.Low != 0 {
			t.Errorf("unexpected filtered summary: %+v", summary)
		}
	})
}

func TestPing(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
