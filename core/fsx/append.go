package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockAcquireTimeout = 30 * time.Second
	lockRetryInterval  = 10 * time.Millisecond
	lockStaleAfter     = 2 * time.Minute
)

// AppendLineLocked appends one record plus a trailing newline to a JSONL
// stream, guarded by a sidecar lock file so concurrent CLI invocations never
// interleave partial lines. The file is fsynced before the lock is released.
func AppendLineLocked(path string, line []byte, mode os.FileMode) error {
	cleanPath, err := checkAppendPath(path)
	if err != nil {
		return err
	}
	parent := filepath.Dir(cleanPath)
	if parent != "." && parent != "" {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return fmt.Errorf("create append directory: %w", err)
		}
	}

	record := make([]byte, 0, len(line)+1)
	record = append(record, line...)
	record = append(record, '\n')

	if err := withLock(cleanPath, func() error {
		// #nosec G304 -- append path is validated local relative or absolute.
		file, openErr := os.OpenFile(cleanPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, mode)
		if openErr != nil {
			return fmt.Errorf("open append file: %w", openErr)
		}
		defer func() {
			_ = file.Close()
		}()
		if _, writeErr := file.Write(record); writeErr != nil {
			return fmt.Errorf("append record: %w", writeErr)
		}
		if syncErr := file.Sync(); syncErr != nil {
			return fmt.Errorf("sync append file: %w", syncErr)
		}
		return nil
	}); err != nil {
		return err
	}

	if parent != "." && parent != "" {
		syncDirectory(parent)
	}
	return nil
}

// withLock serializes writers through an O_EXCL lock file next to the
// stream. A lock older than lockStaleAfter is presumed abandoned by a
// crashed process and reclaimed.
func withLock(path string, fn func() error) error {
	lockPath := path + ".lock"
	deadline := time.Now().Add(lockAcquireTimeout)
	for {
		// #nosec G304 -- lock path is derived from a validated append path.
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = lockFile.Close()
			defer func() {
				_ = os.Remove(lockPath)
			}()
			return fn()
		}
		if !isLockHeld(err, lockPath) {
			return fmt.Errorf("acquire append lock: %w", err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			_ = os.Remove(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("append lock timeout")
		}
		time.Sleep(lockRetryInterval)
	}
}

// isLockHeld distinguishes "another writer holds the lock" from real
// failures. Some platforms surface the O_EXCL collision as a permission
// error, so a permission failure counts as contention only when the lock
// file actually exists.
func isLockHeld(acquireErr error, lockPath string) bool {
	if os.IsExist(acquireErr) {
		return true
	}
	if !os.IsPermission(acquireErr) {
		return false
	}
	_, statErr := os.Stat(lockPath)
	return statErr == nil
}

func checkAppendPath(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	if filepath.IsLocal(cleanPath) || filepath.IsAbs(cleanPath) {
		return cleanPath, nil
	}
	return "", fmt.Errorf("append path must be local relative or absolute")
}
