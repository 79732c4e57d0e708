package domain

import (
	"time"
)

// Enrolment type values for an activity record.
const (
	EnrolmentNew    = "NEW"
	EnrolmentUpdate = "UPDATE"
)

// ErrorCodeDuplicate is the designated error code for duplicate-fingerprint
// rejections. Its per-day rate is one of the four scored metrics.
const ErrorCodeDuplicate = "310"

// ActivityRecord is one logged enrolment action performed by a field
// operator. Records are append-only and owned by the ingestion process;
// the scoring pipeline only reads them.
type ActivityRecord struct {
	ID         string `json:"id"`
	OperatorID string `json:"operatorId"`
	StationID  string `json:"stationId"`
	District   string `json:"district"`

	// Enrolment type (NEW or UPDATE)
	EnrolmentType string `json:"enrolmentType"`

	// Seconds spent completing the enrolment
	DurationSec float64 `json:"enrolmentTimeSec"`

	// Whether the biometric exception path was used
	BiometricException bool `json:"biometricExceptionUsed"`

	// Outcome error code; empty for success
	ErrorCode string `json:"errorCode,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// DayWindow returns the UTC calendar-day bounds [00:00:00.000, 23:59:59.999]
// for the given date, matching the batch windowing contract.
func DayWindow(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Millisecond)
	return start, end
}

// ParseDate parses a calendar date in YYYY-MM-DD form. Malformed dates are
// rejected before any aggregation begins.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
