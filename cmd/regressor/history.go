package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apexlabs/regressor/core/history"
	"github.com/apexlabs/regressor/core/suite"
)

type historyEntry struct {
	RunID        string `json:"run_id"`
	Timestamp    string `json:"timestamp"`
	BuildVersion string `json:"build_version"`
	PassedSuites int    `json:"passed_suites"`
	TotalSuites  int    `json:"total_suites"`
	PassedTests  int    `json:"passed_tests"`
	FailedTests  int    `json:"failed_tests"`
	HasMetrics   bool   `json:"has_metrics"`
}

type historyOutput struct {
	OK            bool           `json:"ok"`
	Runs          []historyEntry `json:"runs,omitempty"`
	Error         string         `json:"error,omitempty"`
	ErrorCode     string         `json:"error_code,omitempty"`
	ErrorCategory string         `json:"error_category,omitempty"`
	Hint          string         `json:"hint,omitempty"`
	Retryable     *bool          `json:"retryable,omitempty"`
}

func runHistory(arguments []string) int {
	flagSet := flag.NewFlagSet("history", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var outDir string
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&outDir, "out-dir", suite.DefaultOutDir, "output directory")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeHistoryOutput(jsonOutput, historyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeHistoryOutput(jsonOutput, historyOutput{OK: false, Error: "unexpected positional arguments"}, exitInvalidInput)
	}

	store := history.NewStore(filepath.Join(outDir, "history"), nil)
	records, err := store.ReadAll()
	if err != nil {
		exitCode := exitCodeForError(err, exitGateFailed)
		code, category, hint, retryable := errorFields(err)
		return writeHistoryOutput(jsonOutput, historyOutput{
			OK:            false,
			Error:         err.Error(),
			ErrorCode:     code,
			ErrorCategory: category,
			Hint:          hint,
			Retryable:     &retryable,
		}, exitCode)
	}

	entries := make([]historyEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, historyEntry{
			RunID:        record.RunID,
			Timestamp:    record.Timestamp,
			BuildVersion: record.BuildVersion,
			PassedSuites: record.Summary.PassedSuites,
			TotalSuites:  record.Summary.TotalSuites,
			PassedTests:  record.Summary.PassedTests,
			FailedTests:  record.Summary.FailedTests,
			HasMetrics:   record.BaselineMetrics != nil,
		})
	}

	if jsonOutput {
		return writeJSONOutput(historyOutput{OK: true, Runs: entries}, exitOK)
	}
	if len(entries) == 0 {
		fmt.Println("no stored runs")
		return exitOK
	}
	for _, entry := range entries {
		metricsMarker := ""
		if entry.HasMetrics {
			metricsMarker = "  +metrics"
		}
		fmt.Printf("%s  %s  suites %d/%d  tests %d passed %d failed%s\n",
			entry.Timestamp,
			entry.RunID,
			entry.PassedSuites,
			entry.TotalSuites,
			entry.PassedTests,
			entry.FailedTests,
			metricsMarker,
		)
	}
	return exitOK
}

func writeHistoryOutput(jsonOutput bool, output historyOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		fmt.Fprintf(os.Stderr, "regressor history: %s\n", output.Error)
	}
	return exitCode
}
