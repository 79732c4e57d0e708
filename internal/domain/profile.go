package domain

import (
	"fmt"
	"strings"
	"time"
)

// RiskLevel is the ordered categorical risk level: LOW < MEDIUM < CRITICAL.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskCritical RiskLevel = "CRITICAL"
)

// ParseRiskLevel validates a user-supplied risk level string.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(strings.ToUpper(s)) {
	case RiskLow:
		return RiskLow, nil
	case RiskMedium:
		return RiskMedium, nil
	case RiskCritical:
		return RiskCritical, nil
	default:
		return "", fmt.Errorf("invalid risk level %q, must be one of LOW, MEDIUM, CRITICAL", s)
	}
}

// Anomaly flag codes raised when a metric's Z-score exceeds the flag
// threshold.
const (
	FlagImpossibleVelocity = "IMPOSSIBLE_VELOCITY"
	FlagBiometricException = "EXCESSIVE_BIOMETRIC_EXCEPTION"
	FlagDuplicateFinger    = "DUPLICATE_FINGER_PATTERN"
	FlagOddHourActivity    = "ODD_HOUR_ACTIVITY"
)

// RiskProfile is the current risk assessment for one operator. Exactly one
// profile exists per operator at any time; it is overwritten in place on
// every completed run that scores the operator and reflects only the most
// recent run. Deletion is an external concern.
type RiskProfile struct {
	OperatorID  string          `json:"operatorId"`
	District    string          `json:"district"`
	RiskScore   int             `json:"riskScore"` // bounded 0-100
	RiskLevel   RiskLevel       `json:"riskLevel"`
	Flags       []string        `json:"flags"`
	Metrics     OperatorMetrics `json:"metrics"` // snapshot that produced the score
	LastUpdated time.Time       `json:"lastUpdated"`
}

// ProfileQuery selects and orders profiles for the reporting endpoints.
type ProfileQuery struct {
	// RiskLevel filters to an exact level when non-empty.
	RiskLevel RiskLevel

	// District filters by case-insensitive substring match when non-empty.
	District string

	// SortBy is one of: riskScore, riskLevel, district, operatorId,
	// lastUpdated. Defaults to riskScore.
	SortBy string

	// SortDesc orders descending when true.
	SortDesc bool

	// Page is 1-based; Limit caps page size.
	Page  int
	Limit int
}

// ProfilePage is one page of profile listing results.
type ProfilePage struct {
	Profiles   []*RiskProfile `json:"profiles"`
	TotalCount int            `json:"totalCount"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

// RiskSummary counts profiles per risk level.
type RiskSummary struct {
	Low      int `json:"LOW"`
	Medium   int `json:"MEDIUM"`
	Critical int `json:"CRITICAL"`
}
