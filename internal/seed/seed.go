// Package seed generates synthetic operator activity for demos and
// local development. A small set of operators is marked anomalous and
// produces the patterns the scoring pipeline is meant to surface.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsight/sentinel/internal/domain"
)

var districts = []string{"North", "South", "East", "West", "Central"}

const alphanum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Config controls the size and shape of the generated fleet.
type Config struct {
	// Operators is the fleet size.
	Operators int

	// Anomalous is how many operators produce high-risk patterns.
	Anomalous int

	// Days of history to generate, ending at EndDate inclusive.
	Days    int
	EndDate time.Time

	// MinRecords and MaxRecords bound per-operator records per day.
	MinRecords int
	MaxRecords int

	// Seed makes generation reproducible.
	Seed int64
}

// DefaultConfig returns a fleet comparable to a mid-size district rollout.
func DefaultConfig() Config {
	return Config{
		Operators:  75,
		Anomalous:  5,
		Days:       14,
		EndDate:    time.Now().UTC(),
		MinRecords: 20,
		MaxRecords: 60,
		Seed:       1,
	}
}

// operator is one synthetic field operator.
type operator struct {
	id        string
	stationID string
	district  string
	anomalous bool
}

// Generator produces activity records and writes them through a repository.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator validates the config and creates a generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Operators <= 0 {
		return nil, fmt.Errorf("operators must be positive, got %d", cfg.Operators)
	}
	if cfg.Anomalous < 0 || cfg.Anomalous > cfg.Operators {
		return nil, fmt.Errorf("anomalous must be between 0 and %d, got %d", cfg.Operators, cfg.Anomalous)
	}
	if cfg.Days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", cfg.Days)
	}
	if cfg.MinRecords <= 0 || cfg.MaxRecords < cfg.MinRecords {
		return nil, fmt.Errorf("invalid record bounds [%d, %d]", cfg.MinRecords, cfg.MaxRecords)
	}
	if cfg.EndDate.IsZero() {
		cfg.EndDate = time.Now().UTC()
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run generates the fleet's history and persists every record.
// Returns the number of records written.
func (g *Generator) Run(ctx context.Context, repo domain.Repository) (int, error) {
	ops := g.makeOperators()

	last, _ := domain.DayWindow(g.cfg.EndDate)
	written := 0

	for d := g.cfg.Days - 1; d >= 0; d-- {
		day := last.AddDate(0, 0, -d)
		for _, op := range ops {
			n := g.cfg.MinRecords + g.rng.Intn(g.cfg.MaxRecords-g.cfg.MinRecords+1)
			for i := 0; i < n; i++ {
				rec := g.makeRecord(op, day)
				if err := repo.SaveActivity(ctx, rec); err != nil {
					return written, fmt.Errorf("failed to save activity: %w", err)
				}
				written++
			}
		}
	}

	slog.Info("seed complete",
		"operators", len(ops),
		"anomalous", g.cfg.Anomalous,
		"days", g.cfg.Days,
		"records", written,
	)
	return written, nil
}

// makeOperators builds the fleet. The first Anomalous operators after
// shuffling are the high-risk ones.
func (g *Generator) makeOperators() []*operator {
	ops := make([]*operator, g.cfg.Operators)
	for i := range ops {
		ops[i] = &operator{
			id:        "OP_" + g.token(4),
			stationID: "STN_" + g.token(3),
			district:  districts[g.rng.Intn(len(districts))],
		}
	}
	g.rng.Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })
	for i := 0; i < g.cfg.Anomalous; i++ {
		ops[i].anomalous = true
	}
	return ops
}

// makeRecord generates one activity record for an operator on a day.
func (g *Generator) makeRecord(op *operator, day time.Time) *domain.ActivityRecord {
	rec := &domain.ActivityRecord{
		ID:         uuid.New().String(),
		OperatorID: op.id,
		StationID:  op.stationID,
		District:   op.district,
	}

	if g.rng.Float64() < 0.7 {
		rec.EnrolmentType = domain.EnrolmentNew
	} else {
		rec.EnrolmentType = domain.EnrolmentUpdate
	}

	// Business hours 9-17, anomalous operators often work odd hours.
	hour := 9 + g.rng.Intn(9)
	if op.anomalous && g.rng.Float64() < 0.40 {
		hour = g.rng.Intn(5) // 00:00-04:59
	}
	rec.Timestamp = day.Add(time.Duration(hour)*time.Hour +
		time.Duration(g.rng.Intn(60))*time.Minute +
		time.Duration(g.rng.Intn(60))*time.Second)

	// Normal enrolments centre around three minutes; anomalous operators
	// rush through in well under a minute.
	if op.anomalous {
		rec.DurationSec = 20 + g.rng.NormFloat64()*8
	} else {
		rec.DurationSec = 180 + g.rng.NormFloat64()*45
	}
	if rec.DurationSec < 5 {
		rec.DurationSec = 5
	}

	if op.anomalous {
		rec.BiometricException = g.rng.Float64() < 0.25
		if g.rng.Float64() < 0.30 {
			rec.ErrorCode = domain.ErrorCodeDuplicate
		}
	} else {
		rec.BiometricException = g.rng.Float64() < 0.02
		if g.rng.Float64() < 0.05 {
			rec.ErrorCode = domain.ErrorCodeDuplicate
		}
	}

	return rec
}

// token returns an uppercase alphanumeric identifier fragment.
func (g *Generator) token(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanum[g.rng.Intn(len(alphanum))]
	}
	return string(b)
}
