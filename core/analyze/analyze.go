// Package analyze compares the current run's performance metrics against a
// baseline record and classifies each tracked metric as a regression, an
// improvement, or neither. The comparison is a pure function of its inputs:
// no wall clock, no randomness, so re-analysis of the same records is
// byte-identical.
package analyze

import (
	"github.com/apexlabs/regressor/core/schema/v1/report"
	"github.com/apexlabs/regressor/core/schema/v1/run"
)

// Metric names as they appear in report artifacts and threshold overrides.
const (
	MetricSuccessRate      = "success_rate"
	MetricAvgProfitUSD     = "avg_profit_usd"
	MetricAvgExecutionTime = "avg_execution_time_ms"
	MetricAvgScore         = "avg_score"
	MetricAvgConfidence    = "avg_confidence"
)

// trendWindow is how many most-recent values form the "recent" mean when
// computing multi-run trends.
const trendWindow = 3

// Bounds holds the percent-change cutoffs for one metric. Regression is
// stored as a positive magnitude; polarity decides which sign it applies to.
type Bounds struct {
	Regression  float64
	Improvement float64
}

// Thresholds maps metric name to its cutoffs.
type Thresholds map[string]Bounds

// DefaultThresholds returns the stock cutoffs. Success rate regresses at a
// tighter 5% because small drops there compound across every downstream
// metric.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MetricSuccessRate:      {Regression: 5, Improvement: 10},
		MetricAvgProfitUSD:     {Regression: 10, Improvement: 10},
		MetricAvgExecutionTime: {Regression: 10, Improvement: 10},
		MetricAvgScore:         {Regression: 10, Improvement: 10},
		MetricAvgConfidence:    {Regression: 10, Improvement: 10},
	}
}

// Override replaces the cutoffs for one metric; unknown names are ignored at
// analysis time because classification only consults the fixed metric table.
func (t Thresholds) Override(metric string, bounds Bounds) {
	t[metric] = bounds
}

func (t Thresholds) bounds(metric string) Bounds {
	if bounds, ok := t[metric]; ok {
		return bounds
	}
	return DefaultThresholds()[metric]
}

// metricSpec is one row of the fixed metric table. Table order is the
// emission order for regressions, improvements, and trends, which keeps
// report output deterministic.
type metricSpec struct {
	name           string
	higherIsBetter bool
	severity       string
	impact         string
	value          func(run.BaselineMetrics) float64
}

var metricTable = []metricSpec{
	{
		name:           MetricSuccessRate,
		higherIsBetter: true,
		severity:       report.SeverityHigh,
		impact:         "fewer executions completing successfully",
		value:          func(m run.BaselineMetrics) float64 { return m.SuccessRate },
	},
	{
		name:           MetricAvgProfitUSD,
		higherIsBetter: true,
		severity:       report.SeverityHigh,
		impact:         "lower average profit per trade",
		value:          func(m run.BaselineMetrics) float64 { return m.AvgProfitUSD },
	},
	{
		name:           MetricAvgExecutionTime,
		higherIsBetter: false,
		severity:       report.SeverityMedium,
		impact:         "slower execution per opportunity",
		value:          func(m run.BaselineMetrics) float64 { return m.AvgExecutionTimeMs },
	},
	{
		name:           MetricAvgScore,
		higherIsBetter: true,
		severity:       report.SeverityMedium,
		impact:         "lower opportunity scoring quality",
		value:          func(m run.BaselineMetrics) float64 { return m.AvgScore },
	},
	{
		name:           MetricAvgConfidence,
		higherIsBetter: true,
		severity:       report.SeverityMedium,
		impact:         "lower decision confidence",
		value:          func(m run.BaselineMetrics) float64 { return m.AvgConfidence },
	},
}

// MetricNames returns the tracked metric names in table order.
func MetricNames() []string {
	names := make([]string, len(metricTable))
	for index, spec := range metricTable {
		names[index] = spec.name
	}
	return names
}

// KnownMetric reports whether name is in the metric table. Config loading
// uses it to reject threshold overrides for metrics that do not exist.
func KnownMetric(name string) bool {
	for _, spec := range metricTable {
		if spec.name == name {
			return true
		}
	}
	return false
}

// Analyze classifies every tracked metric between baseline and current and
// computes multi-run trends over the full history. GeneratedAt is copied
// from the current record's timestamp rather than read from the clock.
func Analyze(current, baseline run.Record, history []run.Record, thresholds Thresholds) report.Report {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}

	result := report.Report{
		SchemaID:      report.SchemaID,
		SchemaVersion: report.SchemaVersion,
		GeneratedAt:   current.Timestamp,
		AnalysisPeriod: report.AnalysisPeriod{
			BaselineTimestamp: baseline.Timestamp,
			CurrentTimestamp:  current.Timestamp,
			RunsAnalyzed:      len(history),
		},
		CurrentMetrics: current.BaselineMetrics,
		Trends:         map[string]string{},
		Regressions:    []report.MetricDelta{},
		Improvements:   []report.MetricDelta{},
	}

	for _, spec := range metricTable {
		result.Trends[spec.name] = trend(spec, history, thresholds.bounds(spec.name))

		if current.BaselineMetrics == nil || baseline.BaselineMetrics == nil {
			continue
		}
		delta, class := classify(spec, *baseline.BaselineMetrics, *current.BaselineMetrics, thresholds.bounds(spec.name))
		switch class {
		case classRegression:
			result.Regressions = append(result.Regressions, delta)
		case classImprovement:
			result.Improvements = append(result.Improvements, delta)
		}
	}

	result.Verdict = verdict(result.Regressions, result.Improvements)
	return result
}

type classification int

const (
	classStable classification = iota
	classRegression
	classImprovement
)

// classify applies the polarity rule: for higher-is-better metrics a drop
// past the regression cutoff regresses, for lower-is-better metrics a rise
// does. A baseline of zero makes percent change undefined and the metric is
// skipped entirely.
func classify(spec metricSpec, baseline, current run.BaselineMetrics, bounds Bounds) (report.MetricDelta, classification) {
	baselineValue := spec.value(baseline)
	currentValue := spec.value(current)
	if baselineValue == 0 {
		return report.MetricDelta{}, classStable
	}
	change := (currentValue - baselineValue) / baselineValue * 100

	delta := report.MetricDelta{
		Metric:        spec.name,
		BaselineValue: baselineValue,
		CurrentValue:  currentValue,
		PercentChange: change,
		Severity:      spec.severity,
		Impact:        spec.impact,
	}

	directed := change
	if !spec.higherIsBetter {
		directed = -change
	}
	switch {
	case directed < -bounds.Regression:
		return delta, classRegression
	case directed > bounds.Improvement:
		return delta, classImprovement
	default:
		return report.MetricDelta{}, classStable
	}
}

// trend compares the mean of the last trendWindow values against the mean of
// everything before that window. With no earlier window or an earlier mean
// of zero the trend is stable. The execution-time direction is inverted so
// "improving" always means getting better, not getting bigger.
func trend(spec metricSpec, history []run.Record, bounds Bounds) string {
	series := make([]float64, 0, len(history))
	for _, record := range history {
		if record.BaselineMetrics == nil {
			continue
		}
		series = append(series, spec.value(*record.BaselineMetrics))
	}

	recentSize := trendWindow
	if len(series) < recentSize {
		recentSize = len(series)
	}
	earlier := series[:len(series)-recentSize]
	if len(earlier) == 0 {
		return report.TrendStable
	}
	earlierMean := mean(earlier)
	if earlierMean == 0 {
		return report.TrendStable
	}
	change := (mean(series[len(series)-recentSize:]) - earlierMean) / earlierMean * 100
	if !spec.higherIsBetter {
		change = -change
	}

	switch {
	case change > bounds.Improvement:
		return report.TrendImproving
	case change < -bounds.Improvement:
		return report.TrendDeclining
	default:
		return report.TrendStable
	}
}

func mean(values []float64) float64 {
	total := 0.0
	for _, value := range values {
		total += value
	}
	return total / float64(len(values))
}

// verdict reduces the per-metric classifications to the single overall
// label, in strict priority order.
func verdict(regressions, improvements []report.MetricDelta) string {
	for _, regression := range regressions {
		if regression.Severity == report.SeverityHigh {
			return report.VerdictCriticalRegression
		}
	}
	if len(regressions) > 0 {
		return report.VerdictMinorRegression
	}
	if len(improvements) > 0 {
		return report.VerdictImproved
	}
	return report.VerdictStable
}
