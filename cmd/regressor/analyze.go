package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apexlabs/regressor/core/analyze"
	"github.com/apexlabs/regressor/core/dialect"
	"github.com/apexlabs/regressor/core/history"
	"github.com/apexlabs/regressor/core/report"
	schemareport "github.com/apexlabs/regressor/core/schema/v1/report"
	"github.com/apexlabs/regressor/core/suite"
)

type analyzeOutput struct {
	OK            bool                 `json:"ok"`
	Verdict       string               `json:"verdict,omitempty"`
	ReportPath    string               `json:"report_path,omitempty"`
	Report        *schemareport.Report `json:"report,omitempty"`
	Warning       string               `json:"warning,omitempty"`
	Error         string               `json:"error,omitempty"`
	ErrorCode     string               `json:"error_code,omitempty"`
	ErrorCategory string               `json:"error_category,omitempty"`
	Hint          string               `json:"hint,omitempty"`
	Retryable     *bool                `json:"retryable,omitempty"`
}

func runAnalyze(arguments []string) int {
	flagSet := flag.NewFlagSet("analyze", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var configPath string
	var outDir string
	var lookBack int
	var jsonOutput bool
	var verbose bool
	var helpFlag bool

	flagSet.StringVar(&configPath, "config", suite.DefaultConfigPath, "suite configuration file (threshold overrides)")
	flagSet.StringVar(&outDir, "out-dir", "", "output directory (overrides config)")
	flagSet.IntVar(&lookBack, "look-back", 0, "runs to look back for the baseline (overrides config)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&verbose, "verbose", false, "log engine internals to stderr")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeAnalyzeOutput(jsonOutput, analyzeOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeAnalyzeOutput(jsonOutput, analyzeOutput{OK: false, Error: "unexpected positional arguments"}, exitInvalidInput)
	}

	// The config file is optional here: analysis can run against a store
	// produced elsewhere. Only a missing file falls back to defaults; a
	// present-but-broken config must not silently discard the operator's
	// tightened cutoffs.
	resolvedOutDir := suite.DefaultOutDir
	resolvedLookBack := suite.DefaultLookBack
	thresholds := analyze.DefaultThresholds()
	cfg, err := suite.Load(configPath, dialect.Known)
	switch {
	case err == nil:
		resolvedOutDir = cfg.OutDir
		resolvedLookBack = cfg.LookBack
		for metric, override := range cfg.Thresholds {
			if !analyze.KnownMetric(metric) {
				return writeAnalyzeOutput(jsonOutput, analyzeOutput{
					OK:    false,
					Error: fmt.Sprintf("unknown metric in thresholds: %q", metric),
				}, exitInvalidInput)
			}
			bounds := thresholds[metric]
			if override.Regression != nil {
				bounds.Regression = *override.Regression
			}
			if override.Improvement != nil {
				bounds.Improvement = *override.Improvement
			}
			thresholds.Override(metric, bounds)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return writeAnalyzeOutput(jsonOutput, analyzeOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if outDir != "" {
		resolvedOutDir = outDir
	}
	if lookBack > 0 {
		resolvedLookBack = lookBack
	}

	logger := newLogger(verbose)
	defer func() { _ = logger.Sync() }()

	store := history.NewStore(filepath.Join(resolvedOutDir, "history"), logger)
	records, err := store.ReadAll()
	if err != nil {
		return writeAnalyzeError(jsonOutput, err)
	}

	selection, err := history.Select(records, resolvedLookBack)
	if err != nil {
		if errors.Is(err, history.ErrInsufficientHistory) {
			warning := fmt.Sprintf("not enough history to compare: %d record(s) stored, need at least 2", len(records))
			if jsonOutput {
				return writeJSONOutput(analyzeOutput{OK: true, Warning: warning}, exitOK)
			}
			fmt.Fprintf(os.Stderr, "regressor analyze: %s\n", warning)
			return exitOK
		}
		return writeAnalyzeError(jsonOutput, err)
	}

	result := analyze.Analyze(selection.Current, selection.Baseline, records, thresholds)
	reportPath, err := report.WriteJSON(resolvedOutDir, result)
	if err != nil {
		return writeAnalyzeError(jsonOutput, err)
	}

	exitCode := report.AnalysisExitCode(result)
	if jsonOutput {
		return writeJSONOutput(analyzeOutput{
			OK:         exitCode == exitOK,
			Verdict:    result.Verdict,
			ReportPath: reportPath,
			Report:     &result,
		}, exitCode)
	}
	fmt.Print(report.RenderText(result, analyze.MetricNames()))
	fmt.Printf("Report written to %s\n", reportPath)
	return exitCode
}

func writeAnalyzeError(jsonOutput bool, err error) int {
	exitCode := exitCodeForError(err, exitGateFailed)
	code, category, hint, retryable := errorFields(err)
	return writeAnalyzeOutput(jsonOutput, analyzeOutput{
		OK:            false,
		Error:         err.Error(),
		ErrorCode:     code,
		ErrorCategory: category,
		Hint:          hint,
		Retryable:     &retryable,
	}, exitCode)
}

func writeAnalyzeOutput(jsonOutput bool, output analyzeOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		fmt.Fprintf(os.Stderr, "regressor analyze: %s\n", output.Error)
	}
	return exitCode
}
