package domain

// BaselineMetrics is the per-district statistical reference distribution
// for one day. Rates are percentages (0-100); stddevs are population
// standard deviations. Undefined statistics are normalized to 0 at the
// source, never stored as NaN.
type BaselineMetrics struct {
	MeanDurationSec        float64 `json:"meanEnrolmentTimeSec"`
	StdDevDurationSec      float64 `json:"stdDevEnrolmentTimeSec"`
	BiometricExceptionRate float64 `json:"biometricExceptionRate"`
	DuplicateErrorRate     float64 `json:"duplicateErrorRate"`
	ActivityHourStdDev     float64 `json:"activityHourStdDev"`
}

// DistrictBaseline is one baseline row, unique per (district, date).
// Written exclusively by the baseline aggregator with replace-on-conflict
// semantics; districts with no records for the date have no row.
type DistrictBaseline struct {
	District string          `json:"district"`
	Date     string          `json:"date"` // YYYY-MM-DD
	Metrics  BaselineMetrics `json:"metrics"`
}

// OperatorMetrics describes one operator's own behavior for a day, in the
// same units as BaselineMetrics.
type OperatorMetrics struct {
	AvgDurationSec         float64 `json:"avgEnrolmentTimeSec"`
	BiometricExceptionRate float64 `json:"biometricExceptionRate"`
	DuplicateErrorRate     float64 `json:"duplicateErrorRate"`
	ActivityHourStdDev     float64 `json:"activityHourStdDev"`
}

// OperatorDailyMetrics is the per-(operator, date) aggregation result.
// It is computed fresh every run and never persisted independently.
// District is the district of the operator's earliest record that day,
// which keeps the choice deterministic if an operator appears in more
// than one district.
type OperatorDailyMetrics struct {
	OperatorID string          `json:"operatorId"`
	District   string          `json:"district"`
	Date       string          `json:"date"`
	Metrics    OperatorMetrics `json:"metrics"`
}
