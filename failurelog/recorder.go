// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package failurelog writes the per-run failure log.
//
// Each run gets its own CSV file named after the run's start time. Rows are
// flushed and synced to disk as they are written, so the log survives a crash
// part way through a run.
package failurelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/docimport/core"
)

const (
	// DefaultPrefix is the file name prefix for failure logs.
	DefaultPrefix = "import_errors"

	// TimestampLayout formats row timestamps.
	TimestampLayout = "2006-01-02 15:04:05"

	fileStampLayout = "20060102_150405"

	// maxNameAttempts bounds the numbered suffixes tried when runs share a start second.
	maxNameAttempts = 100
)

// Header is the fixed first row of every failure log.
var Header = []string{"Timestamp", "Filename", "Language", "Full Path", "Error Type", "Error Message"}

// ErrClosed is returned when recording to a closed log.
var ErrClosed = errors.New("failure log closed")

// CSVRecorder appends failure entries to a CSV file.
// Safe for concurrent use.
type CSVRecorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	path   string
	count  int
	closed bool
}

// FileName returns the log file name for a run started at now.
func FileName(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%s.csv", prefix, now.Format(fileStampLayout))
}

// Create creates a new failure log in dir and writes the header. An existing
// log is never overwritten: when the name is taken, a numbered suffix is added.
func Create(dir, prefix string, now time.Time) (*CSVRecorder, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create failure log directory: %w", err)
	}

	file, path, err := createUnique(dir, FileName(prefix, now))
	if err != nil {
		return nil, fmt.Errorf("create failure log: %w", err)
	}

	r := &CSVRecorder{
		file:   file,
		writer: csv.NewWriter(file),
		path:   path,
	}
	if err := r.writeRow(Header); err != nil {
		file.Close()
		return nil, fmt.Errorf("write failure log header: %w", err)
	}
	return r, nil
}

func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxNameAttempts; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("%s: %w", filepath.Join(dir, name), fs.ErrExist)
}

// Record appends one entry and syncs it to disk.
func (r *CSVRecorder) Record(entry core.FailureEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	row := []string{
		ts.Format(TimestampLayout),
		entry.Filename,
		entry.Label,
		entry.Path,
		string(entry.Reason),
		entry.Message,
	}
	if err := r.writeRow(row); err != nil {
		return fmt.Errorf("write failure log row: %w", err)
	}
	r.count++
	return nil
}

// writeRow must be called with mu held, or before r is shared.
func (r *CSVRecorder) writeRow(row []string) error {
	if err := r.writer.Write(row); err != nil {
		return err
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return err
	}
	return r.file.Sync()
}

// Path returns the log file path.
func (r *CSVRecorder) Path() string {
	return r.path
}

// Count returns the number of entries recorded.
func (r *CSVRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close closes the underlying file. Closing twice is a no-op.
func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// ReadAll reads the entries of a failure log, skipping the header.
func ReadAll(path string) ([]core.FailureEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read failure log: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	entries := make([]core.FailureEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(Header) {
			return nil, fmt.Errorf("read failure log: row has %d fields, want %d", len(row), len(Header))
		}
		ts, err := time.ParseInLocation(TimestampLayout, row[0], time.Local)
		if err != nil {
			return nil, fmt.Errorf("read failure log: %w", err)
		}
		entries = append(entries, core.FailureEntry{
			Timestamp: ts,
			Filename:  row[1],
			Label:     row[2],
			Path:      row[3],
			Reason:    core.ReasonCode(row[4]),
			Message:   row[5],
		})
	}
	return entries, nil
}
