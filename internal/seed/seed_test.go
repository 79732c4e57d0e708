package seed

import (
	"context"
	"testing"
	"time"

	"github.com/fieldsight/sentinel/internal/domain"
	"github.com/fieldsight/sentinel/internal/repository"
)

// collectRepo captures saved records without a database.
type collectRepo struct {
	records []*domain.ActivityRecord
}

func (c *collectRepo) SaveActivity(ctx context.Context, rec *domain.ActivityRecord) error {
	c.records = append(c.records, rec)
	return nil
}

func (c *collectRepo) ListActivityByWindow(ctx context.Context, from, to time.Time) ([]*domain.ActivityRecord, error) {
	return nil, nil
}

func (c *collectRepo) SaveBaseline(ctx context.Context, b *domain.DistrictBaseline) error { return nil }

func (c *collectRepo) GetBaseline(ctx context.Context, district, date string) (*domain.DistrictBaseline, error) {
	return nil, repository.ErrNotFound
}

func (c *collectRepo) ListBaselinesByDate(ctx context.Context, date string) ([]*domain.DistrictBaseline, error) {
	return nil, nil
}

func (c *collectRepo) UpsertProfile(ctx context.Context, p *domain.RiskProfile) error { return nil }

func (c *collectRepo) GetProfile(ctx context.Context, operatorID string) (*domain.RiskProfile, error) {
	return nil, repository.ErrNotFound
}

func (c *collectRepo) ListProfiles(ctx context.Context, q domain.ProfileQuery) (*domain.ProfilePage, error) {
	return &domain.ProfilePage{}, nil
}

func (c *collectRepo) SummarizeProfiles(ctx context.Context, district string) (*domain.RiskSummary, error) {
	return &domain.RiskSummary{}, nil
}

func (c *collectRepo) Ping(ctx context.Context) error { return nil }
func (c *collectRepo) Close() error                   { return nil }

func testConfig() Config {
	return Config{
		Operators:  10,
		Anomalous:  2,
		Days:       3,
		EndDate:    time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		MinRecords: 5,
		MaxRecords: 10,
		Seed:       42,
	}
}

func TestGeneratorValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ZeroOperators", func(c *Config) { c.Operators = 0 }},
		{"NegativeDays", func(c *Config) { c.Days = -1 }},
		{"TooManyAnomalous", func(c *Config) { c.Anomalous = c.Operators + 1 }},
		{"InvertedBounds", func(c *Config) { c.MinRecords = 10; c.MaxRecords = 5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := NewGenerator(cfg); err == nil {
				t.Error("expected config error")
			}
		})
	}
}

func TestGeneratorRun(t *testing.T) {
	gen, err := NewGenerator(testConfig())
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	repo := &collectRepo{}
	written, err := gen.Run(context.Background(), repo)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if written != len(repo.records) {
		t.Errorf("reported %d records, saved %d", written, len(repo.records))
	}

	// 10 operators, 3 days, 5-10 records each
	if written < 10*3*5 || written > 10*3*10 {
		t.Errorf("record count %d outside expected bounds", written)
	}

	operators := make(map[string]bool)
	days := make(map[string]bool)
	for _, rec := range repo.records {
		if rec.ID == "" || rec.OperatorID == "" || rec.StationID == "" || rec.District == "" {
			t.Fatalf("incomplete record: %+v", rec)
		}
		if rec.DurationSec < 5 {
			t.Errorf("duration below floor: %f", rec.DurationSec)
		}
		if rec.EnrolmentType != domain.EnrolmentNew && rec.EnrolmentType != domain.EnrolmentUpdate {
			t.Errorf("unexpected enrolment type %q", rec.EnrolmentType)
		}
		operators[rec.OperatorID] = true
		days[rec.Timestamp.Format("2006-01-02")] = true
	}

	if len(operators) != 10 {
		t.Errorf("expected 10 operators, got %d", len(operators))
	}
	if len(days) != 3 {
		t.Errorf("expected 3 distinct days, got %d", len(days))
	}
}

func TestGeneratorDeterminism(t *testing.T) {
	run := func() []*domain.ActivityRecord {
		gen, err := NewGenerator(testConfig())
		if err != nil {
			t.Fatalf("failed to create generator: %v", err)
		}
		repo := &collectRepo{}
		if _, err := gen.Run(context.Background(), repo); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		return repo.records
	}

	first := run()
	second := run()

	if len(first) != len(second) {
		t.Fatalf("record counts differ: %d vs %d", len(first), len(second))
	}

	for i := range first {
		a, b := first[i], second[i]
		// IDs are random UUIDs; everything else must match.
		if a.OperatorID != b.OperatorID || a.District != b.District ||
			a.DurationSec != b.DurationSec || !a.Timestamp.Equal(b.Timestamp) ||
			a.BiometricException != b.BiometricException || a.ErrorCode != b.ErrorCode {
			t.Fatalf("record %d differs between runs: %+v vs %+v", i, a, b)
		}
	}
}

func TestAnomalousOperatorsStandOut(t *testing.T) {
	cfg := testConfig()
	cfg.Operators = 20
	cfg.Anomalous = 3
	cfg.MinRecords = 30
	cfg.MaxRecords = 50

	gen, err := NewGenerator(cfg)
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	repo := &collectRepo{}
	if _, err := gen.Run(context.Background(), repo); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// Group mean durations per operator
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range repo.records {
		sums[rec.OperatorID] += rec.DurationSec
		counts[rec.OperatorID]++
	}

	fast := 0
	for id, sum := range sums {
		if sum/float64(counts[id]) < 60 {
			fast++
		}
	}

	if fast != 3 {
		t.Errorf("expected 3 operators with rushed mean durations, got %d", fast)
	}
}
