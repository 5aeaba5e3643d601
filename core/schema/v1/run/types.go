package run

const (
	SchemaID      = "regressor.run.record"
	SchemaVersion = "1.0.0"
)

// SuiteResult captures one configured suite's outcome for a single run.
// The count invariant TestsTotal == TestsPassed + TestsFailed + TestsSkipped
// holds for every dialect; dialects that cannot report skips leave
// TestsSkipped at zero.
type SuiteResult struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	PassedProcess bool   `json:"passed_process"`
	// ExitCode is nil when the suite process could not be spawned at all.
	ExitCode     *int   `json:"exit_code"`
	TimedOut     bool   `json:"timed_out"`
	DurationMs   int64  `json:"duration_ms"`
	TestsTotal   int    `json:"tests_total"`
	TestsPassed  int    `json:"tests_passed"`
	TestsFailed  int    `json:"tests_failed"`
	TestsSkipped int    `json:"tests_skipped"`
	ParseWarning string `json:"parse_warning,omitempty"`
	RawOutput    string `json:"raw_output,omitempty"`
	RawErrors    string `json:"raw_errors,omitempty"`
}

// Summary is derived by summation over Suites in configuration order and is
// never edited by hand.
type Summary struct {
	TotalSuites     int   `json:"total_suites"`
	PassedSuites    int   `json:"passed_suites"`
	FailedSuites    int   `json:"failed_suites"`
	TotalTests      int   `json:"total_tests"`
	PassedTests     int   `json:"passed_tests"`
	FailedTests     int   `json:"failed_tests"`
	SkippedTests    int   `json:"skipped_tests"`
	TotalDurationMs int64 `json:"total_duration_ms"`
}

// BaselineMetrics is a flat snapshot of externally supplied performance
// numbers captured at record-write time. The block is optional; a record
// written while the metrics source is unavailable simply omits it.
type BaselineMetrics struct {
	SuccessRate        float64 `json:"success_rate"`
	AvgProfitUSD       float64 `json:"avg_profit_usd"`
	AvgExecutionTimeMs float64 `json:"avg_execution_time_ms"`
	AvgScore           float64 `json:"avg_score"`
	AvgConfidence      float64 `json:"avg_confidence"`
}

// Record is the persisted, immutable artifact for one runner invocation.
// Suites is always in configuration order, never completion order.
type Record struct {
	SchemaID        string           `json:"schema_id"`
	SchemaVersion   string           `json:"schema_version"`
	RunID           string           `json:"run_id"`
	Timestamp       string           `json:"timestamp"`
	BuildVersion    string           `json:"build_version"`
	RuntimeVersion  string           `json:"runtime_version"`
	Suites          []SuiteResult    `json:"suites"`
	Summary         Summary          `json:"summary"`
	BaselineMetrics *BaselineMetrics `json:"baseline_metrics,omitempty"`
}
