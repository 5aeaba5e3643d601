package report

import "github.com/apexlabs/regressor/core/schema/v1/run"

const (
	SchemaID      = "regressor.regression.report"
	SchemaVersion = "1.0.0"
)

const (
	VerdictStable             = "STABLE"
	VerdictImproved           = "IMPROVED"
	VerdictMinorRegression    = "MINOR_REGRESSION"
	VerdictCriticalRegression = "CRITICAL_REGRESSION"
)

const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

type AnalysisPeriod struct {
	BaselineTimestamp string `json:"baseline_timestamp"`
	CurrentTimestamp  string `json:"current_timestamp"`
	RunsAnalyzed      int    `json:"runs_analyzed"`
}

// MetricDelta describes one classified change between baseline and current.
type MetricDelta struct {
	Metric        string  `json:"metric"`
	BaselineValue float64 `json:"baseline_value"`
	CurrentValue  float64 `json:"current_value"`
	PercentChange float64 `json:"percent_change"`
	Severity      string  `json:"severity"`
	Impact        string  `json:"impact"`
}

// Report is the ephemeral comparison result. It is recomputed on every
// analysis invocation and never becomes the system of record; GeneratedAt is
// copied from the current run record so re-analysis of the same two records
// is byte-identical.
type Report struct {
	SchemaID       string               `json:"schema_id"`
	SchemaVersion  string               `json:"schema_version"`
	GeneratedAt    string               `json:"generated_at"`
	AnalysisPeriod AnalysisPeriod       `json:"analysis_period"`
	CurrentMetrics *run.BaselineMetrics `json:"current_metrics,omitempty"`
	Trends         map[string]string    `json:"trends"`
	Regressions    []MetricDelta        `json:"regressions"`
	Improvements   []MetricDelta        `json:"improvements"`
	Verdict        string               `json:"verdict"`
}
