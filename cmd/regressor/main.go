package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// version is stamped at release time via ldflags; default stays dev for local builds.
var version = "0.0.0-dev"

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	startedAt := time.Now()
	command := normalizeCommand(arguments)
	exitCode := runDispatch(arguments)
	writeOperationalEvent(command, exitCode, time.Since(startedAt), time.Now().UTC())
	return exitCode
}

func runDispatch(arguments []string) int {
	if len(arguments) < 2 {
		printUsage()
		return exitOK
	}

	switch arguments[1] {
	case "run":
		return runRun(arguments[2:])
	case "analyze":
		return runAnalyze(arguments[2:])
	case "history":
		return runHistory(arguments[2:])
	case "version", "--version", "-v":
		fmt.Println("regressor", version)
		return exitOK
	default:
		printUsage()
		return exitInvalidInput
	}
}

func normalizeCommand(arguments []string) string {
	if len(arguments) < 2 {
		return "usage"
	}
	command := strings.TrimSpace(arguments[1])
	switch command {
	case "":
		return "unknown"
	case "--version", "-v":
		return "version"
	}
	return command
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  regressor run [--config regressor.yaml] [--out-dir regressor-out] [--metrics performance_metrics.json] [--parallel <n>] [--json] [--verbose]")
	fmt.Println("  regressor analyze [--config regressor.yaml] [--out-dir regressor-out] [--look-back 6] [--json] [--verbose]")
	fmt.Println("  regressor history [--out-dir regressor-out] [--json]")
	fmt.Println("  regressor version")
}
