// Package report renders analysis results and run records for their two
// consumers: a canonical JSON artifact for machines and a plain-text summary
// for terminals. It also owns the exit-code policies, which are deliberately
// separate for the runner and the analyzer.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	rerrors "github.com/apexlabs/regressor/core/errors"
	"github.com/apexlabs/regressor/core/fsx"
	"github.com/apexlabs/regressor/core/jcs"
	"github.com/apexlabs/regressor/core/schema/v1/report"
	"github.com/apexlabs/regressor/core/schema/v1/run"
	"github.com/apexlabs/regressor/core/schema/validate"
)

// ArtifactName is the comparison report's filename under the output dir.
const ArtifactName = "regression_report.json"

// WriteJSON persists the comparison report as canonical JSON (RFC 8785)
// under dir. Canonical form plus the analyzer's clock-free construction is
// what makes re-analysis byte-identical on disk.
func WriteJSON(dir string, rpt report.Report) (string, error) {
	canonical, err := jcs.MarshalCanonical(rpt)
	if err != nil {
		return "", rerrors.Wrap(
			fmt.Errorf("encode regression report: %w", err),
			rerrors.CategoryInternalFailure,
			"report_encode_failed",
			"",
			false,
		)
	}
	if err := validate.RegressionReport(canonical); err != nil {
		return "", rerrors.Wrap(
			fmt.Errorf("regression report failed validation before write: %w", err),
			rerrors.CategoryInternalFailure,
			"report_schema_invalid",
			"",
			false,
		)
	}

	path := filepath.Join(dir, ArtifactName)
	if err := fsx.WriteFileAtomic(path, canonical, 0o644); err != nil {
		return "", rerrors.Wrap(
			fmt.Errorf("write regression report %s: %w", path, err),
			rerrors.CategoryIOFailure,
			"report_write_failed",
			"check free space and permissions on the output directory",
			true,
		)
	}
	return path, nil
}

// RenderText formats the comparison report for a terminal. Sections appear
// in a fixed order so diffs between runs stay readable.
func RenderText(rpt report.Report, metricOrder []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Regression analysis: %s\n", rpt.Verdict)
	fmt.Fprintf(&b, "  baseline %s -> current %s (%d runs analyzed)\n",
		rpt.AnalysisPeriod.BaselineTimestamp,
		rpt.AnalysisPeriod.CurrentTimestamp,
		rpt.AnalysisPeriod.RunsAnalyzed,
	)

	if len(rpt.Trends) > 0 {
		b.WriteString("\nTrends:\n")
		for _, metric := range metricOrder {
			direction, ok := rpt.Trends[metric]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  %-22s %s\n", metric, direction)
		}
	}

	renderDeltas(&b, "Regressions", rpt.Regressions)
	renderDeltas(&b, "Improvements", rpt.Improvements)

	fmt.Fprintf(&b, "\nVerdict: %s\n", rpt.Verdict)
	return b.String()
}

func renderDeltas(b *strings.Builder, heading string, deltas []report.MetricDelta) {
	if len(deltas) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for _, delta := range deltas {
		fmt.Fprintf(b, "  %-22s %.4g -> %.4g (%+.1f%%, %s) %s\n",
			delta.Metric,
			delta.BaselineValue,
			delta.CurrentValue,
			delta.PercentChange,
			delta.Severity,
			delta.Impact,
		)
	}
}

// RenderRunSummary formats a run record for a terminal, one line per suite.
// Every configured suite is listed, including ones that failed to launch or
// produced unparseable output.
func RenderRunSummary(record run.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s at %s\n", record.RunID, record.Timestamp)
	for _, suite := range record.Suites {
		fmt.Fprintf(&b, "  %s %-20s %s\n", suiteMarker(suite), suite.Name, suiteDetail(suite))
	}

	summary := record.Summary
	fmt.Fprintf(&b, "Suites: %d/%d passed  Tests: %d passed, %d failed, %d skipped  (%d ms)\n",
		summary.PassedSuites,
		summary.TotalSuites,
		summary.PassedTests,
		summary.FailedTests,
		summary.SkippedTests,
		summary.TotalDurationMs,
	)
	return b.String()
}

func suiteMarker(suite run.SuiteResult) string {
	if suite.PassedProcess {
		return "PASS"
	}
	return "FAIL"
}

func suiteDetail(suite run.SuiteResult) string {
	switch {
	case suite.ExitCode == nil:
		return "did not launch"
	case suite.TimedOut:
		return fmt.Sprintf("timed out after %d ms", suite.DurationMs)
	case suite.ParseWarning != "":
		return fmt.Sprintf("exit %d, %s", *suite.ExitCode, suite.ParseWarning)
	default:
		return fmt.Sprintf("%d/%d tests passed in %d ms",
			suite.TestsPassed, suite.TestsTotal, suite.DurationMs)
	}
}

// RunExitCode is the runner policy: non-zero iff any suite's process check
// failed. Test counts do not factor in; a suite that exits zero with failing
// tests is that suite's own reporting bug.
func RunExitCode(record run.Record) int {
	if record.Summary.FailedSuites > 0 {
		return 1
	}
	return 0
}

// AnalysisExitCode is the analyzer policy: non-zero iff the verdict is
// critical. Minor regressions report but do not gate.
func AnalysisExitCode(rpt report.Report) int {
	if rpt.Verdict == report.VerdictCriticalRegression {
		return 1
	}
	return 0
}
