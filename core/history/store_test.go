package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	rerrors "github.com/apexlabs/regressor/core/errors"
	"github.com/apexlabs/regressor/core/schema/v1/run"
)

func recordFixture(runID, timestamp string) run.Record {
	return run.Record{
		SchemaID:       run.SchemaID,
		SchemaVersion:  run.SchemaVersion,
		RunID:          runID,
		Timestamp:      timestamp,
		BuildVersion:   "1.0.0",
		RuntimeVersion: "go1.25.1",
		Suites:         []run.SuiteResult{},
		Summary:        run.Summary{},
	}
}

func TestStoreWriteCreatesRecordAndLatest(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "history"), nil)
	result, err := store.Write(recordFixture("run-1", "2026-03-01T10:00:00.000000001Z"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if result.Digest == "" {
		t.Fatal("expected a record digest")
	}
	wantName := "run_20260301T100000.000000001Z.json"
	if filepath.Base(result.Path) != wantName {
		t.Fatalf("unexpected record filename: %s", filepath.Base(result.Path))
	}

	latest, found, err := store.Latest()
	if err != nil || !found {
		t.Fatalf("latest: found=%v err=%v", found, err)
	}
	if latest.RunID != "run-1" {
		t.Fatalf("latest pointer holds wrong record: %s", latest.RunID)
	}
}

func TestStoreReadAllSortsByFilenameNotWriteOrder(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	// Written newest first; ReadAll must still come back oldest first.
	stamps := []string{
		"2026-03-03T10:00:00Z",
		"2026-03-01T10:00:00Z",
		"2026-03-02T10:00:00Z",
	}
	for index, stamp := range stamps {
		if _, err := store.Write(recordFixture("run-"+stamp, stamp)); err != nil {
			t.Fatalf("write %d: %v", index, err)
		}
	}

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for index, want := range []string{"2026-03-01T10:00:00Z", "2026-03-02T10:00:00Z", "2026-03-03T10:00:00Z"} {
		if records[index].Timestamp != want {
			t.Fatalf("record %d out of order: %s", index, records[index].Timestamp)
		}
	}
}

func TestStoreReadAllEmptyDirectories(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"), nil)
	records, err := store.ReadAll()
	if err != nil || len(records) != 0 {
		t.Fatalf("missing dir must read as empty history: %v %v", records, err)
	}
	if _, found, err := store.Latest(); found || err != nil {
		t.Fatalf("latest on empty store: found=%v err=%v", found, err)
	}
}

func TestStoreReadAllRejectsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	if _, err := store.Write(recordFixture("run-1", "2026-03-01T10:00:00Z")); err != nil {
		t.Fatalf("write: %v", err)
	}
	corrupt := filepath.Join(dir, "run_20260401T000000.000000000Z.json")
	if err := os.WriteFile(corrupt, []byte(`{"schema_id":"wrong"}`), 0o644); err != nil {
		t.Fatalf("write corrupt fixture: %v", err)
	}

	_, err := store.ReadAll()
	if rerrors.CategoryOf(err) != rerrors.CategoryParseFailed {
		t.Fatalf("expected parse_failed, got %v", err)
	}
	if !strings.Contains(err.Error(), filepath.Base(corrupt)) {
		t.Fatalf("error does not name the corrupt file: %v", err)
	}
}

func TestStoreWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	if _, err := store.Write(recordFixture("run-1", "2026-03-01T10:00:00Z")); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file visible after write: %s", entry.Name())
		}
	}
}

func TestStoreWriteRejectsBadTimestamp(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	_, err := store.Write(recordFixture("run-1", "yesterday-ish"))
	if rerrors.CategoryOf(err) != rerrors.CategoryInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}

func TestStoreWriteFailureIsClassifiedIOFailure(t *testing.T) {
	blocked := filepath.Join(t.TempDir(), "file-not-dir")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	store := NewStore(filepath.Join(blocked, "history"), nil)
	_, err := store.Write(recordFixture("run-1", "2026-03-01T10:00:00Z"))
	if rerrors.CategoryOf(err) != rerrors.CategoryIOFailure {
		t.Fatalf("expected io_failure, got %v", err)
	}
	if rerrors.CodeOf(err) != "store_write_failed" {
		t.Fatalf("expected store_write_failed code, got %q", rerrors.CodeOf(err))
	}
}

func TestSelectBaselineIndexMath(t *testing.T) {
	makeRecords := func(n int) []run.Record {
		records := make([]run.Record, n)
		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		for index := range records {
			records[index] = recordFixture(
				"run",
				base.Add(time.Duration(index)*time.Hour).Format(time.RFC3339),
			)
		}
		return records
	}

	cases := []struct {
		name          string
		count         int
		lookBack      int
		baselineIndex int
	}{
		{"full window", 10, 6, 3},
		{"short history clamps to oldest", 4, 6, 0},
		{"exactly two records", 2, 6, 0},
		{"look-back one", 5, 1, 3},
		{"look-back below one clamps", 5, 0, 3},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			records := makeRecords(testCase.count)
			selection, err := Select(records, testCase.lookBack)
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			if selection.Baseline.Timestamp != records[testCase.baselineIndex].Timestamp {
				t.Fatalf("baseline index wrong: got %s want %s",
					selection.Baseline.Timestamp, records[testCase.baselineIndex].Timestamp)
			}
			if selection.Current.Timestamp != records[testCase.count-1].Timestamp {
				t.Fatal("current must be the newest record")
			}
		})
	}
}

func TestSelectInsufficientHistory(t *testing.T) {
	for _, count := range []int{0, 1} {
		records := make([]run.Record, count)
		_, err := Select(records, 6)
		if !errors.Is(err, ErrInsufficientHistory) {
			t.Fatalf("count=%d: expected ErrInsufficientHistory, got %v", count, err)
		}
		if rerrors.CategoryOf(err) != rerrors.CategoryInsufficientHistory {
			t.Fatalf("count=%d: wrong category: %v", count, err)
		}
	}
}
