// Package pipeline orchestrates the daily risk computation: baseline
// aggregation, operator metrics aggregation and per-operator scoring.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fieldsight/sentinel/internal/aggregate"
	"github.com/fieldsight/sentinel/internal/domain"
	"github.com/fieldsight/sentinel/internal/rules"
	"github.com/fieldsight/sentinel/internal/scoring"
)

var tracer = otel.Tracer("sentinel-pipeline")

// Runner executes the daily pipeline for one target date at a time.
// Concurrent runs for the same date are not coordinated here; scheduling
// is the caller's concern.
type Runner struct {
	repo      domain.Repository
	agg       *aggregate.Service
	scorer    *scoring.Scorer
	flagRules *rules.Engine   // optional
	bus       domain.EventBus // optional
	cache     domain.Cache    // optional
	workers   int
}

// NewRunner creates a pipeline runner. flagRules, bus and cache may be nil.
func NewRunner(repo domain.Repository, agg *aggregate.Service, scorer *scoring.Scorer, flagRules *rules.Engine, bus domain.EventBus, cache domain.Cache, workers int) *Runner {
	if workers <= 0 {
		workers = 8
	}
	return &Runner{
		repo:      repo,
		agg:       agg,
		scorer:    scorer,
		flagRules: flagRules,
		bus:       bus,
		cache:     cache,
		workers:   workers,
	}
}

// Run executes the full pipeline for a date given in YYYY-MM-DD form.
// Malformed dates and infrastructure failures during aggregation are
// fatal; per-operator failures and missing baselines are counted as skips
// and the run continues. Re-running a date with unchanged input data
// produces identical baselines and profiles.
func (r *Runner) Run(ctx context.Context, dateStr string) (*domain.RunSummary, error) {
	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", dateStr, err)
	}

	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("run.date", dateStr))

	start := time.Now()
	runID := uuid.New().String()

	slog.Info("starting daily risk computation",
		"run_id", runID,
		"date", dateStr,
	)

	// Stage 1: district baselines. Any storage failure here aborts the
	// run; a day with no records is fine and yields an empty baseline set.
	districts, err := r.agg.RunBaselineAggregation(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("baseline aggregation failed: %w", err)
	}
	slog.Info("district baselines updated",
		"run_id", runID,
		"districts", districts,
	)

	// Stage 2: operator daily metrics.
	operatorMetrics, err := r.agg.ComputeOperatorMetrics(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("operator metrics aggregation failed: %w", err)
	}
	if len(operatorMetrics) == 0 {
		summary := &domain.RunSummary{
			RunID:         runID,
			ProcessedDate: dateStr,
			Message:       "No operator activity found for the given date.",
			DurationMs:    time.Since(start).Milliseconds(),
		}
		r.publishRunCompleted(ctx, summary)
		return summary, nil
	}
	slog.Info("operator metrics computed",
		"run_id", runID,
		"operators", len(operatorMetrics),
	)

	// Stage 3: load the day's baselines once. The map is read-only for
	// the rest of the run; scoring workers only ever read it.
	baselines, err := r.repo.ListBaselinesByDate(ctx, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to load baselines: %w", err)
	}
	baselineMap := make(map[string]*domain.DistrictBaseline, len(baselines))
	for _, b := range baselines {
		baselineMap[b.District] = b
	}

	// Stage 4: score operators in parallel. Operators are independent
	// units of work; each profile upsert is atomic on its own.
	var evaluated, skipped atomic.Int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workers)

	for _, m := range operatorMetrics {
		wg.Add(1)
		go func(m *domain.OperatorDailyMetrics) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			if r.scoreOperator(ctx, runID, m, baselineMap) {
				evaluated.Add(1)
			} else {
				skipped.Add(1)
			}
		}(m)
	}

	wg.Wait()

	r.invalidateSummary(ctx)

	summary := &domain.RunSummary{
		RunID:              runID,
		ProcessedDate:      dateStr,
		OperatorsEvaluated: int(evaluated.Load()),
		OperatorsSkipped:   int(skipped.Load()),
		Message:            "Daily risk computation completed successfully.",
		DurationMs:         time.Since(start).Milliseconds(),
	}

	span.SetAttributes(
		attribute.Int("run.operators_evaluated", summary.OperatorsEvaluated),
		attribute.Int("run.operators_skipped", summary.OperatorsSkipped),
	)

	slog.Info("daily risk computation complete",
		"run_id", runID,
		"date", dateStr,
		"operators_evaluated", summary.OperatorsEvaluated,
		"operators_skipped", summary.OperatorsSkipped,
		"duration_ms", summary.DurationMs,
	)

	r.publishRunCompleted(ctx, summary)
	return summary, nil
}

// scoreOperator scores one operator and upserts their profile. Returns
// true when the operator was evaluated, false when skipped.
func (r *Runner) scoreOperator(ctx context.Context, runID string, m *domain.OperatorDailyMetrics, baselineMap map[string]*domain.DistrictBaseline) bool {
	baseline, ok := baselineMap[m.District]
	if !ok {
		slog.Warn("skipping operator, no district baseline",
			"run_id", runID,
			"operator_id", m.OperatorID,
			"district", m.District,
		)
		return false
	}

	result := r.scorer.Score(m.Metrics, baseline.Metrics)

	flags := result.Flags
	if flags == nil {
		flags = []string{}
	}
	if r.flagRules != nil && r.flagRules.RulesCount() > 0 {
		flags = appendUnique(flags, r.extraFlags(m, baseline, result))
	}

	profile := &domain.RiskProfile{
		OperatorID:  m.OperatorID,
		District:    m.District,
		RiskScore:   result.Score,
		RiskLevel:   result.Level,
		Flags:       flags,
		Metrics:     m.Metrics,
		LastUpdated: time.Now().UTC(),
	}

	if err := r.repo.UpsertProfile(ctx, profile); err != nil {
		slog.Error("failed to upsert risk profile",
			"run_id", runID,
			"operator_id", m.OperatorID,
			"error", err,
		)
		return false
	}

	if r.cache != nil {
		_ = r.cache.Delete(ctx, domain.ProfileCacheKey(m.OperatorID))
	}

	if profile.RiskLevel == domain.RiskCritical {
		r.publishAlert(ctx, profile)
	}

	slog.Debug("operator scored",
		"run_id", runID,
		"operator_id", m.OperatorID,
		"district", m.District,
		"score", profile.RiskScore,
		"level", profile.RiskLevel,
		"flags", len(profile.Flags),
	)

	return true
}

// extraFlags evaluates the supplemental flag rules for one operator.
func (r *Runner) extraFlags(m *domain.OperatorDailyMetrics, b *domain.DistrictBaseline, result *scoring.Result) []string {
	zScores := make(map[string]float64, len(result.ZScores))
	for metric, z := range result.ZScores {
		zScores[string(metric)] = z
	}

	return r.flagRules.Evaluate(rules.Activation(m, b, result.Score, zScores))
}

func (r *Runner) publishRunCompleted(ctx context.Context, summary *domain.RunSummary) {
	if r.bus == nil {
		return
	}
	payload, _ := json.Marshal(summary)
	if err := r.bus.Publish(ctx, domain.TopicRunCompleted, payload); err != nil {
		slog.Error("failed to publish run summary",
			"run_id", summary.RunID,
			"error", err,
		)
	}
}

func (r *Runner) publishAlert(ctx context.Context, profile *domain.RiskProfile) {
	if r.bus == nil {
		return
	}
	payload, _ := json.Marshal(profile)
	if err := r.bus.Publish(ctx, domain.TopicOperatorAlert, payload); err != nil {
		slog.Error("failed to publish operator alert",
			"operator_id", profile.OperatorID,
			"error", err,
		)
	}
}

func (r *Runner) invalidateSummary(ctx context.Context) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, domain.SummaryCacheKey)
}

// appendUnique appends the extras that are not already present.
func appendUnique(flags, extras []string) []string {
	seen := make(map[string]bool, len(flags))
	for _, f := range flags {
		seen[f] = true
	}
	for _, f := range extras {
		if !seen[f] {
			flags = append(flags, f)
			seen[f] = true
		}
	}
	return flags
}
