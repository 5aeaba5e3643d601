// Package history is the flat-file system of record for run records and the
// baseline selection that feeds regression analysis. Records are immutable
// once written; the store never rewrites or compacts them.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	rerrors "github.com/apexlabs/regressor/core/errors"
	"github.com/apexlabs/regressor/core/fsx"
	"github.com/apexlabs/regressor/core/jcs"
	"github.com/apexlabs/regressor/core/schema/v1/run"
	"github.com/apexlabs/regressor/core/schema/validate"
)

const (
	recordPrefix = "run_"
	recordSuffix = ".json"
	latestName   = "latest.json"
	// recordStampLayout sorts lexically in timestamp order and carries
	// nanoseconds, so two writes in the same second never collide.
	recordStampLayout = "20060102T150405.000000000Z"
)

// Store reads and writes run records under a single history directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore returns a store rooted at dir. The directory is created lazily on
// first write; reads of a store that was never written see empty history.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the history directory the store operates on.
func (s *Store) Dir() string { return s.dir }

// WriteResult identifies a persisted record.
type WriteResult struct {
	Path   string
	Digest string
}

// Write persists record as a new immutable history file and repoints
// latest.json at the same content. The encoded record is schema-validated
// before anything touches disk; any failure past validation is a fatal store
// error for the caller.
func (s *Store) Write(record run.Record) (WriteResult, error) {
	stamp, err := time.Parse(time.RFC3339Nano, record.Timestamp)
	if err != nil {
		return WriteResult{}, rerrors.Wrap(
			fmt.Errorf("record timestamp %q: %w", record.Timestamp, err),
			rerrors.CategoryInvalidInput,
			"record_timestamp_invalid",
			"run records must carry an RFC 3339 timestamp",
			false,
		)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return WriteResult{}, rerrors.Wrap(
			fmt.Errorf("encode run record: %w", err),
			rerrors.CategoryInternalFailure,
			"record_encode_failed",
			"",
			false,
		)
	}
	if err := validate.RunRecord(data); err != nil {
		return WriteResult{}, rerrors.Wrap(
			fmt.Errorf("run record failed validation before write: %w", err),
			rerrors.CategoryInternalFailure,
			"record_schema_invalid",
			"",
			false,
		)
	}
	digest, err := jcs.DigestJCS(data)
	if err != nil {
		return WriteResult{}, rerrors.Wrap(
			fmt.Errorf("digest run record: %w", err),
			rerrors.CategoryInternalFailure,
			"record_digest_failed",
			"",
			false,
		)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return WriteResult{}, storeWriteError(fmt.Errorf("create history dir %s: %w", s.dir, err))
	}

	recordPath := filepath.Join(s.dir, recordPrefix+stamp.UTC().Format(recordStampLayout)+recordSuffix)
	if err := fsx.WriteFileAtomic(recordPath, data, 0o644); err != nil {
		return WriteResult{}, storeWriteError(fmt.Errorf("write run record %s: %w", recordPath, err))
	}
	if err := fsx.WriteFileAtomic(filepath.Join(s.dir, latestName), data, 0o644); err != nil {
		return WriteResult{}, storeWriteError(fmt.Errorf("write latest pointer: %w", err))
	}

	s.logger.Info("run record persisted",
		zap.String("path", recordPath),
		zap.String("run_id", record.RunID),
		zap.String("digest", digest),
	)
	return WriteResult{Path: recordPath, Digest: digest}, nil
}

func storeWriteError(cause error) error {
	return rerrors.Wrap(
		cause,
		rerrors.CategoryIOFailure,
		"store_write_failed",
		"check free space and permissions on the history directory",
		true,
	)
}

// ReadAll loads every history record sorted by filename, which the stamp
// layout makes identical to timestamp order. mtime is never consulted. A
// record file that fails validation or decoding fails the whole read; a
// silently dropped record would shift the baseline window.
func (s *Store) ReadAll() ([]run.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rerrors.Wrap(
			fmt.Errorf("read history dir %s: %w", s.dir, err),
			rerrors.CategoryIOFailure,
			"store_read_failed",
			"check permissions on the history directory",
			true,
		)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, recordPrefix) || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]run.Record, 0, len(names))
	for _, name := range names {
		record, err := s.readRecord(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Latest returns the most recent record, preferring the latest.json pointer
// and reporting found=false on an empty store.
func (s *Store) Latest() (run.Record, bool, error) {
	record, err := s.readRecord(filepath.Join(s.dir, latestName))
	if err == nil {
		return record, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return run.Record{}, false, nil
	}
	return run.Record{}, false, err
}

func (s *Store) readRecord(path string) (run.Record, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- paths are confined to the store directory.
	if err != nil {
		return run.Record{}, rerrors.Wrap(
			fmt.Errorf("read run record %s: %w", path, err),
			rerrors.CategoryIOFailure,
			"store_read_failed",
			"",
			true,
		)
	}
	if err := validate.RunRecord(data); err != nil {
		return run.Record{}, rerrors.Wrap(
			fmt.Errorf("run record %s failed validation: %w", path, err),
			rerrors.CategoryParseFailed,
			"record_corrupt",
			"the history file was modified or truncated; remove it to continue",
			false,
		)
	}
	var record run.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return run.Record{}, rerrors.Wrap(
			fmt.Errorf("decode run record %s: %w", path, err),
			rerrors.CategoryParseFailed,
			"record_corrupt",
			"the history file was modified or truncated; remove it to continue",
			false,
		)
	}
	return record, nil
}
