package aggregate

import (
	"math"

	"github.com/fieldsight/sentinel/internal/domain"
)

// mean returns the arithmetic mean of xs, or 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// popStdDev returns the population standard deviation of xs. A single
// sample has no spread and yields 0, so undefined statistics never
// propagate as NaN.
func popStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// groupStats computes the four scored statistics over one group of
// records. Rates are percentages. The group is never empty: groups only
// exist because at least one record fell into them.
func groupStats(records []*domain.ActivityRecord) (meanDur, stdDevDur, biometricRate, duplicateRate, hourStdDev float64) {
	durations := make([]float64, 0, len(records))
	hours := make([]float64, 0, len(records))
	var biometric, duplicate int

	for _, rec := range records {
		durations = append(durations, rec.DurationSec)
		hours = append(hours, float64(rec.Timestamp.UTC().Hour()))
		if rec.BiometricException {
			biometric++
		}
		if rec.ErrorCode == domain.ErrorCodeDuplicate {
			duplicate++
		}
	}

	n := float64(len(records))
	meanDur = mean(durations)
	stdDevDur = popStdDev(durations)
	biometricRate = float64(biometric) / n * 100
	duplicateRate = float64(duplicate) / n * 100
	hourStdDev = popStdDev(hours)
	return
}
