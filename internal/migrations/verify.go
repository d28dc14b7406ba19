package migrations

import (
	"fmt"
	"io"
	"path"
	"path/filepath"

	"billing-tools/internal/checksum"
)

type Status string

const (
	StatusOK       Status = "ok"
	StatusMismatch Status = "mismatch"
	StatusPending  Status = "pending"
	StatusError    Status = "error"
)

// DriftEntry compares one local migration file with the history table.
type DriftEntry struct {
	Path    string
	Local   int32
	Applied int32
	Status  Status
	Err     error
}

// ChecksumAll checksums files given relative to root, keeping the relative
// paths in the results.
func ChecksumAll(root string, files []string) []checksum.FileChecksum {
	results := make([]checksum.FileChecksum, 0, len(files))
	for _, rel := range files {
		sum, err := checksum.File(filepath.Join(root, filepath.FromSlash(rel)))
		results = append(results, checksum.FileChecksum{Path: rel, Checksum: sum, Err: err})
	}
	return results
}

// Verify matches results against applied checksums by file base name.
func Verify(results []checksum.FileChecksum, applied map[string]int32) []DriftEntry {
	entries := make([]DriftEntry, 0, len(results))
	for _, r := range results {
		e := DriftEntry{Path: r.Path, Local: r.Checksum}
		switch recorded, ok := applied[path.Base(filepath.ToSlash(r.Path))]; {
		case r.Err != nil:
			e.Status = StatusError
			e.Err = r.Err
		case !ok:
			e.Status = StatusPending
		case recorded != r.Checksum:
			e.Status = StatusMismatch
			e.Applied = recorded
		default:
			e.Status = StatusOK
			e.Applied = recorded
		}
		entries = append(entries, e)
	}
	return entries
}

// Summarize counts entries per status.
func Summarize(entries []DriftEntry) map[Status]int {
	counts := map[Status]int{}
	for _, e := range entries {
		counts[e.Status]++
	}
	return counts
}

// HasMismatch reports whether any applied migration changed locally.
func HasMismatch(entries []DriftEntry) bool {
	return Summarize(entries)[StatusMismatch] > 0
}

func WriteDrift(w io.Writer, entries []DriftEntry) error {
	for _, e := range entries {
		var line string
		switch e.Status {
		case StatusOK:
			line = fmt.Sprintf("ok %s %d", e.Path, e.Local)
		case StatusMismatch:
			line = fmt.Sprintf("mismatch %s local=%d applied=%d", e.Path, e.Local, e.Applied)
		case StatusPending:
			line = fmt.Sprintf("pending %s %d", e.Path, e.Local)
		default:
			line = fmt.Sprintf("error %s %s", e.Path, checksum.ErrorMessage(e.Err))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
