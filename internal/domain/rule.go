package domain

// FlagRule is a supplemental, operator-defined anomaly rule. The
// expression is CEL over the per-operator activation map (metrics,
// baseline means and Z-scores) and must evaluate to bool; when true the
// named flag is appended to the profile's flag list. Flag rules are
// informational only and never change the numeric score.
type FlagRule struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`

	// Expression is a CEL boolean expression, e.g.
	// "z_duplicate_error > 2.0 && op_biometric_exception_rate > 20.0"
	Expression string `json:"expression"`

	// Flag is the code appended when the expression is true.
	Flag string `json:"flag"`

	Enabled bool `json:"enabled"`
}
