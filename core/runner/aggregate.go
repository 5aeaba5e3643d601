package runner

import (
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/apexlabs/regressor/core/dialect"
	"github.com/apexlabs/regressor/core/schema/v1/run"
)

// RecordOptions supplies the record-level metadata that does not come from
// suite execution itself. Zero values are filled with fresh defaults, which
// keeps tests deterministic when they pin RunID and Timestamp explicitly.
type RecordOptions struct {
	RunID        string
	Timestamp    time.Time
	BuildVersion string
	// Metrics is the optional performance snapshot captured alongside the
	// run; nil when the snapshot source is unavailable.
	Metrics *run.BaselineMetrics
	Logger  *zap.Logger
}

// BuildRecord folds raw executions into the persisted run record. Suites
// appear in the same order the executions were supplied, which is
// configuration order, and the summary is recomputed from scratch so it can
// never drift from the per-suite rows.
func BuildRecord(executions []Execution, opts RecordOptions) run.Record {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	timestamp := opts.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	record := run.Record{
		SchemaID:        run.SchemaID,
		SchemaVersion:   run.SchemaVersion,
		RunID:           runID,
		Timestamp:       timestamp.UTC().Format(time.RFC3339Nano),
		BuildVersion:    opts.BuildVersion,
		RuntimeVersion:  runtime.Version(),
		Suites:          make([]run.SuiteResult, 0, len(executions)),
		BaselineMetrics: opts.Metrics,
	}

	for _, execution := range executions {
		record.Suites = append(record.Suites, suiteResult(execution, logger))
	}
	record.Summary = summarize(record.Suites)
	return record
}

func suiteResult(execution Execution, logger *zap.Logger) run.SuiteResult {
	result := run.SuiteResult{
		Name:       execution.Spec.Name,
		Kind:       execution.Spec.Kind,
		ExitCode:   execution.ExitCode,
		TimedOut:   execution.TimedOut,
		DurationMs: execution.Duration.Milliseconds(),
		RawOutput:  execution.Stdout,
		RawErrors:  execution.Stderr,
	}
	result.PassedProcess = execution.ExitCode != nil &&
		*execution.ExitCode == 0 &&
		!execution.TimedOut

	d, ok := dialect.Lookup(execution.Spec.Kind)
	if !ok {
		// Config validation rejects unknown kinds before execution, so this
		// only fires if a caller bypasses suite.Load.
		result.ParseWarning = fmt.Sprintf("no parser registered for dialect %q", execution.Spec.Kind)
		return result
	}

	counts, recognized := d.Parse(execution.Stdout, execution.Stderr, execution.ExitCode)
	if !recognized {
		result.ParseWarning = fmt.Sprintf("output not recognized by dialect %q", execution.Spec.Kind)
		logger.Warn("suite output not parseable",
			zap.String("suite", execution.Spec.Name),
			zap.String("kind", execution.Spec.Kind),
		)
		return result
	}

	result.TestsTotal = counts.Total
	result.TestsPassed = counts.Passed
	result.TestsFailed = counts.Failed
	result.TestsSkipped = counts.Skipped
	return result
}

func summarize(suites []run.SuiteResult) run.Summary {
	summary := run.Summary{TotalSuites: len(suites)}
	for _, suite := range suites {
		if suite.PassedProcess {
			summary.PassedSuites++
		} else {
			summary.FailedSuites++
		}
		summary.TotalTests += suite.TestsTotal
		summary.PassedTests += suite.TestsPassed
		summary.FailedTests += suite.TestsFailed
		summary.SkippedTests += suite.TestsSkipped
		summary.TotalDurationMs += suite.DurationMs
	}
	return summary
}
