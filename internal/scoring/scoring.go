// Package scoring turns one operator's daily metrics and their district
// baseline into a bounded risk score, level and anomaly flags.
package scoring

import (
	"math"

	"github.com/fieldsight/sentinel/internal/domain"
)

// MetricID identifies one scored behavioral metric.
type MetricID string

const (
	MetricDuration           MetricID = "duration"
	MetricBiometricException MetricID = "biometric_exception"
	MetricDuplicateError     MetricID = "duplicate_error"
	MetricActivityHours      MetricID = "activity_hours"
)

// Evidence is the complete input tuple for one metric's contribution. The
// scorer iterates these generically instead of hardcoding field access.
type Evidence struct {
	Metric          MetricID
	OperatorValue   float64
	BaselineMean    float64
	ReferenceStdDev float64
	Weight          float64
	Flag            string
}

// Result is the outcome of scoring one operator.
type Result struct {
	Score   int
	Level   domain.RiskLevel
	Flags   []string
	ZScores map[MetricID]float64
}

// Scorer applies a ScoringConfig policy. It is stateless and safe for
// concurrent use across scoring workers.
type Scorer struct {
	cfg domain.ScoringConfig
}

// NewScorer creates a scorer with the given policy.
func NewScorer(cfg domain.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// ZScore standardizes a value against a mean and reference deviation.
// A zero reference deviation means no deviation signal, never infinity.
func ZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// Evidence assembles the metric tuples for one operator against their
// district baseline. Duration normalizes against the district's own
// computed stddev; the rate and hour-spread metrics use the fixed
// reference deviations from the policy, which stay stable at small
// per-district sample sizes.
func (s *Scorer) Evidence(m domain.OperatorMetrics, b domain.BaselineMetrics) []Evidence {
	return []Evidence{
		{
			Metric:          MetricDuration,
			OperatorValue:   m.AvgDurationSec,
			BaselineMean:    b.MeanDurationSec,
			ReferenceStdDev: b.StdDevDurationSec,
			Weight:          s.cfg.Weights.Duration,
			Flag:            domain.FlagImpossibleVelocity,
		},
		{
			Metric:          MetricBiometricException,
			OperatorValue:   m.BiometricExceptionRate,
			BaselineMean:    b.BiometricExceptionRate,
			ReferenceStdDev: s.cfg.ReferenceStdDevs.BiometricException,
			Weight:          s.cfg.Weights.BiometricException,
			Flag:            domain.FlagBiometricException,
		},
		{
			Metric:          MetricDuplicateError,
			OperatorValue:   m.DuplicateErrorRate,
			BaselineMean:    b.DuplicateErrorRate,
			ReferenceStdDev: s.cfg.ReferenceStdDevs.DuplicateError,
			Weight:          s.cfg.Weights.DuplicateError,
			Flag:            domain.FlagDuplicateFinger,
		},
		{
			Metric:          MetricActivityHours,
			OperatorValue:   m.ActivityHourStdDev,
			BaselineMean:    b.ActivityHourStdDev,
			ReferenceStdDev: s.cfg.ReferenceStdDevs.ActivityHours,
			Weight:          s.cfg.Weights.ActivityHours,
			Flag:            domain.FlagOddHourActivity,
		},
	}
}

// Score evaluates one operator's metrics against a district baseline.
// Only positive Z-scores (worse than the district norm) contribute to the
// score; each contributes z * 10 * weight. The total is rounded and
// clamped into [0, 100].
func (s *Scorer) Score(m domain.OperatorMetrics, b domain.BaselineMetrics) *Result {
	evidence := s.Evidence(m, b)

	result := &Result{
		ZScores: make(map[MetricID]float64, len(evidence)),
	}

	var total float64
	for _, ev := range evidence {
		z := ZScore(ev.OperatorValue, ev.BaselineMean, ev.ReferenceStdDev)
		result.ZScores[ev.Metric] = z

		if z > s.cfg.ZFlagThreshold {
			result.Flags = append(result.Flags, ev.Flag)
		}
		if z > 0 {
			total += z * 10 * ev.Weight
		}
	}

	result.Score = clamp(int(math.Round(total)), 0, 100)
	result.Level = s.LevelFor(result.Score)
	return result
}

// LevelFor maps a score to its risk level using the policy boundaries.
func (s *Scorer) LevelFor(score int) domain.RiskLevel {
	switch {
	case score >= s.cfg.CriticalScore:
		return domain.RiskCritical
	case score >= s.cfg.MediumScore:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
