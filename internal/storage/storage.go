// Package storage implements crash-safe JSON persistence: an atomic
// write-with-backup protocol, backup-based read recovery, and an
// append-only audit log. It is grounded on
// original_source/storage/storage_manager.py, adapted so the write
// protocol's retry/backoff and the read protocol's backup promotion are
// explicit Go control flow instead of nested try/except.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/infosec-bank/ledger/internal/bankerr"
)

const (
	maxWriteAttempts = 3
	retryBackoff     = 50 * time.Millisecond
)

// WriteJSON serializes value as indented JSON and commits it to path using
// the atomic write protocol: write to path.tmp, fsync, rotate any existing
// path to path.bak, then rename path.tmp over path. Makes up to
// maxWriteAttempts attempts in total on I/O error; cleans up path.tmp and
// returns bankerr.ErrStorageIO after the last attempt fails.
func WriteJSON(path string, value interface{}) error {
	tmp := path + ".tmp"
	bak := path + ".bak"

	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if err := writeOnce(path, tmp, bak, value); err != nil {
			lastErr = err
			log.WithFields(log.Fields{"path": path, "attempt": attempt, "err": err}).
				Warn("storage: write attempt failed")
			time.Sleep(retryBackoff)
			continue
		}
		return nil
	}

	_ = os.Remove(tmp)
	return fmt.Errorf("%w: %s: %v", bankerr.ErrStorageIO, path, lastErr)
}

func writeOnce(path, tmp, bak string, value interface{}) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	if err := enc.Encode(value); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(bak) // drop any stale backup first
		if err := os.Rename(path, bak); err != nil {
			return err
		}
	}

	return os.Rename(tmp, path)
}

// ReadJSON loads the JSON document at path into out. If path is missing or
// fails to parse, it falls back to path.bak; a recovered backup is promoted
// to path via WriteJSON. If no usable primary exists and there is no
// backup, out is left untouched and ReadJSON reports ok=false with a nil
// error (the caller should apply its own default rather than an empty file
// being created). If the backup exists but does not parse either, ReadJSON
// returns ok=false and an error wrapping bankerr.ErrStorageCorrupt.
func ReadJSON(path string, out interface{}) (ok bool, err error) {
	if data, readErr := os.ReadFile(path); readErr == nil {
		if jsonErr := json.Unmarshal(data, out); jsonErr == nil {
			return true, nil
		}
		log.WithField("path", path).Warn("storage: primary file corrupted, attempting backup recovery")
	}

	bak := path + ".bak"
	data, readErr := os.ReadFile(bak)
	if readErr != nil {
		return false, nil
	}
	if jsonErr := json.Unmarshal(data, out); jsonErr != nil {
		return false, fmt.Errorf("%w: backup for %s is also corrupt: %v", bankerr.ErrStorageCorrupt, path, jsonErr)
	}

	if writeErr := WriteJSON(path, out); writeErr != nil {
		log.WithField("path", path).WithError(writeErr).Warn("storage: recovered from backup but failed to re-persist primary")
	} else {
		log.WithField("path", path).Info("storage: recovered primary file from backup")
	}
	return true, nil
}

// AppendAudit appends one line to the audit log at path in the format
// "[<iso-timestamp>] User: <uid> | Status: <SUCCESS|FAIL> | Action: <action>".
// Failures are logged but never returned as fatal to the caller — per
// design, a broken audit trail must not abort the originating
// operation — but the error is still surfaced so callers that care
// (e.g. tests) can observe it.
func AppendAudit(path, userID, status, action string) error {
	line := fmt.Sprintf("[%s] User: %-12s | Status: %-8s | Action: %s\n",
		time.Now().Format(time.RFC3339), userID, status, action)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.WithError(err).Warn("storage: could not create audit log directory")
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.WithError(err).Warn("storage: could not open audit log")
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		log.WithError(err).Warn("storage: could not write audit log entry")
		return err
	}
	return nil
}
