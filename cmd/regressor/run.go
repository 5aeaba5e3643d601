package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apexlabs/regressor/core/dialect"
	"github.com/apexlabs/regressor/core/history"
	"github.com/apexlabs/regressor/core/report"
	"github.com/apexlabs/regressor/core/runner"
	schemarun "github.com/apexlabs/regressor/core/schema/v1/run"
	"github.com/apexlabs/regressor/core/suite"
)

const defaultMetricsPath = "performance_metrics.json"

type runOutput struct {
	OK            bool               `json:"ok"`
	RecordPath    string             `json:"record_path,omitempty"`
	RecordDigest  string             `json:"record_digest,omitempty"`
	RunID         string             `json:"run_id,omitempty"`
	Summary       *schemarun.Summary `json:"summary,omitempty"`
	Error         string             `json:"error,omitempty"`
	ErrorCode     string             `json:"error_code,omitempty"`
	ErrorCategory string             `json:"error_category,omitempty"`
	Hint          string             `json:"hint,omitempty"`
	Retryable     *bool              `json:"retryable,omitempty"`
}

func runRun(arguments []string) int {
	flagSet := flag.NewFlagSet("run", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var configPath string
	var outDir string
	var metricsPath string
	var parallel int
	var jsonOutput bool
	var verbose bool
	var helpFlag bool

	flagSet.StringVar(&configPath, "config", suite.DefaultConfigPath, "suite configuration file")
	flagSet.StringVar(&outDir, "out-dir", "", "output directory (overrides config)")
	flagSet.StringVar(&metricsPath, "metrics", "", "performance metrics snapshot file (overrides config)")
	flagSet.IntVar(&parallel, "parallel", 0, "max concurrently running suites (overrides config)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&verbose, "verbose", false, "log engine internals to stderr")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeRunOutput(jsonOutput, runOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeRunOutput(jsonOutput, runOutput{OK: false, Error: "unexpected positional arguments"}, exitInvalidInput)
	}

	cfg, err := suite.Load(configPath, dialect.Known)
	if err != nil {
		return writeRunError(jsonOutput, err, exitInvalidInput)
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}
	if metricsPath != "" {
		cfg.MetricsPath = metricsPath
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = defaultMetricsPath
	}
	if parallel > 0 {
		cfg.Parallel = parallel
	}

	logger := newLogger(verbose)
	defer func() { _ = logger.Sync() }()

	options := runner.Options{
		Parallel: cfg.Parallel,
		Logger:   logger,
	}
	if !jsonOutput {
		options.StdoutSink = os.Stdout
		options.StderrSink = os.Stderr
	}
	executions := runner.ExecuteAll(context.Background(), cfg.Suites, options)

	metrics, err := runner.ReadMetricsSnapshot(cfg.MetricsPath)
	if err != nil {
		// The snapshot is best-effort; the record is still written without it.
		fmt.Fprintf(os.Stderr, "regressor warning: metrics snapshot skipped: %v\n", err)
		metrics = nil
	}

	record := runner.BuildRecord(executions, runner.RecordOptions{
		BuildVersion: version,
		Metrics:      metrics,
		Logger:       logger,
	})

	store := history.NewStore(filepath.Join(cfg.OutDir, "history"), logger)
	result, err := store.Write(record)
	if err != nil {
		return writeRunError(jsonOutput, err, exitGateFailed)
	}

	exitCode := report.RunExitCode(record)
	if jsonOutput {
		summary := record.Summary
		return writeJSONOutput(runOutput{
			OK:           exitCode == exitOK,
			RecordPath:   result.Path,
			RecordDigest: result.Digest,
			RunID:        record.RunID,
			Summary:      &summary,
		}, exitCode)
	}
	fmt.Print(report.RenderRunSummary(record))
	fmt.Printf("Record written to %s\n", result.Path)
	return exitCode
}

func writeRunError(jsonOutput bool, err error, fallbackExit int) int {
	exitCode := exitCodeForError(err, fallbackExit)
	code, category, hint, retryable := errorFields(err)
	return writeRunOutput(jsonOutput, runOutput{
		OK:            false,
		Error:         err.Error(),
		ErrorCode:     code,
		ErrorCategory: category,
		Hint:          hint,
		Retryable:     &retryable,
	}, exitCode)
}

func writeRunOutput(jsonOutput bool, output runOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		fmt.Fprintf(os.Stderr, "regressor run: %s\n", output.Error)
	}
	return exitCode
}
