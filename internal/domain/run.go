package domain

// RunSummary is the structured result of one pipeline run for a single
// target date, returned to whatever triggered the run.
type RunSummary struct {
	RunID              string `json:"runId"`
	ProcessedDate      string `json:"processedDate"`
	OperatorsEvaluated int    `json:"operatorsEvaluated"`
	OperatorsSkipped   int    `json:"operatorsSkipped"`
	Message            string `json:"message"`
	DurationMs         int64  `json:"durationMs"`
}
