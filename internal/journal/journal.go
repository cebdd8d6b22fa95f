// Package journal persists display-state transitions as JSONL.
package journal

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

// Record is one journaled display-state transition.
type Record struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Display string    `json:"display"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to"`
	Cause   string    `json:"cause,omitempty"`
}

// NewRecord builds a Record with a generated ULID and the current time.
func NewRecord(display, from, to, cause string) (Record, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return Record{}, fmt.Errorf("failed to generate record id: %w", err)
	}
	return Record{
		ID:      id.String(),
		Time:    time.Now(),
		Display: display,
		From:    from,
		To:      to,
		Cause:   cause,
	}, nil
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	LedgeSchemaVersion int   `json:"ledge_schema_version"`
	CreatedAt          int64 `json:"created_at"`
}

// ErrJournalClosed is returned when operations are attempted on a closed journal.
var ErrJournalClosed = errors.New("journal is closed")

// Journal is an append-only JSONL transition log.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// New opens the journal at path, creating it (and parent directories)
// if needed.
func New(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	j := &Journal{
		path: path,
		file: file,
	}

	// A fresh file gets the schema header as its first line.
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := j.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return j, nil
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// writeHeader writes the schema version header to the file.
func (j *Journal) writeHeader() error {
	header := schemaHeader{
		LedgeSchemaVersion: SchemaVersion,
		CreatedAt:          time.Now().Unix(),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return err
	}

	_, err = j.file.Write(append(data, '\n'))
	return err
}

// Append writes one record and syncs.
func (j *Journal) Append(r Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return ErrJournalClosed
	}

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return err
	}
	return j.file.Sync()
}

// Load reads all records from the journal. Malformed lines are skipped.
func (j *Journal) Load() ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return nil, ErrJournalClosed
	}

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", j.path, err)
	}

	records, err := scanRecords(j.file)
	if err != nil {
		return records, err
	}

	// Seek back to end for appending
	if _, err := j.file.Seek(0, io.SeekEnd); err != nil {
		return records, err
	}
	return records, nil
}

// Prune drops records older than maxAge and, if keep > 0, caps the
// journal at the keep newest records. It rewrites the file and returns
// the number of records removed.
func (j *Journal) Prune(maxAge time.Duration, keep int) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return 0, ErrJournalClosed
	}

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek %s: %w", j.path, err)
	}
	records, err := scanRecords(j.file)
	if err != nil {
		return 0, err
	}

	kept := records
	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge)
		kept = kept[:0]
		for _, r := range records {
			if r.Time.After(cutoff) {
				kept = append(kept, r)
			}
		}
	}
	if keep > 0 && len(kept) > keep {
		sort.Slice(kept, func(i, k int) bool { return kept[i].Time.Before(kept[k].Time) })
		kept = kept[len(kept)-keep:]
	}

	removed := len(records) - len(kept)
	if removed == 0 {
		if _, err := j.file.Seek(0, io.SeekEnd); err != nil {
			return 0, err
		}
		return 0, nil
	}

	if err := j.rewriteLocked(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// Clear removes all records, leaving a fresh header.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}
	return j.rewriteLocked(nil)
}

// rewriteLocked replaces the file contents with the given records,
// keeping a backup until the new file is written. Caller must hold the
// lock.
func (j *Journal) rewriteLocked(records []Record) error {
	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return err
		}
		j.file = nil
	}

	backupPath := j.path + ".bak"
	if err := os.Rename(j.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(j.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		// Try to restore backup
		os.Rename(backupPath, j.path)
		return fmt.Errorf("failed to create new journal: %w", err)
	}
	j.file = file

	if err := j.writeHeader(); err != nil {
		return err
	}
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	if err := j.file.Sync(); err != nil {
		return err
	}

	os.Remove(backupPath)
	return nil
}

// Close releases the file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		return err
	}
	return nil
}

// ReadAll reads records from a journal file without taking ownership of
// it. A missing file reads as empty. Used by read-only consumers while
// the daemon holds the journal open.
func ReadAll(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	return scanRecords(file)
}

// scanRecords parses JSONL records, skipping the header and malformed
// lines.
func scanRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)

	// Increase buffer size for potentially long lines
	const maxLineSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		if len(line) == 0 {
			continue
		}

		// First line is the header
		if lineNum == 1 {
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.LedgeSchemaVersion > 0 {
				if header.LedgeSchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.LedgeSchemaVersion, SchemaVersion)
				}
				continue
			}
			// Not a header, fall through and try it as a record.
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			// Skip malformed lines
			continue
		}
		if rec.ID != "" {
			records = append(records, rec)
		}
	}

	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("error reading journal: %w", err)
	}
	return records, nil
}
