package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apexlabs/regressor/core/fsx"
)

// operationalEvent is one JSONL line per CLI invocation, appended to the
// path named by REGRESSOR_EVENTS_LOG. The stream is best-effort: a write
// failure warns on stderr and never changes the command's exit code.
type operationalEvent struct {
	SchemaID        string `json:"schema_id"`
	SchemaVersion   string `json:"schema_version"`
	Command         string `json:"command"`
	ExitCode        int    `json:"exit_code"`
	DurationMs      int64  `json:"duration_ms"`
	Timestamp       string `json:"timestamp"`
	ProducerVersion string `json:"producer_version"`
}

func writeOperationalEvent(command string, exitCode int, elapsed time.Duration, now time.Time) {
	eventsPath := strings.TrimSpace(os.Getenv("REGRESSOR_EVENTS_LOG"))
	if eventsPath == "" {
		return
	}
	event := operationalEvent{
		SchemaID:        "regressor.operational.event",
		SchemaVersion:   "1.0.0",
		Command:         command,
		ExitCode:        exitCode,
		DurationMs:      elapsed.Milliseconds(),
		Timestamp:       now.Format(time.RFC3339Nano),
		ProducerVersion: version,
	}
	encoded, err := json.Marshal(event)
	if err != nil {
		reportEventWriteFailure(err)
		return
	}
	if err := fsx.AppendLineLocked(eventsPath, encoded, 0o600); err != nil {
		reportEventWriteFailure(err)
	}
}

func reportEventWriteFailure(err error) {
	fmt.Fprintf(os.Stderr, "regressor warning: operational event write failed: %v\n", err)
}
