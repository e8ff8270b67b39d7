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

package ingestion

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/storage"
)

// DefaultBatchSize is the number of records committed together.
const DefaultBatchSize = 100

// FailureRecorder persists failure entries.
type FailureRecorder interface {
	Record(entry core.FailureEntry) error
}

type batchState int

const (
	batchAccumulating batchState = iota
	batchCommitting
	batchCommitted
	batchRolledBack
)

func (s batchState) String() string {
	switch s {
	case batchAccumulating:
		return "accumulating"
	case batchCommitting:
		return "committing"
	case batchCommitted:
		return "committed"
	case batchRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

type batch struct {
	seq     int
	records []*core.Record
	state   batchState
}

// BatchOutcome describes one flushed batch.
type BatchOutcome struct {
	Seq        int
	Records    []*core.Record
	Inserted   int
	Ignored    int
	IgnoredIDs []string // records the destination already held
	Err        error
	Reason     core.ReasonCode // set when Err != nil
}

// Committed reports whether the batch was persisted.
func (o *BatchOutcome) Committed() bool {
	return o.Err == nil
}

// LoaderCounts are the loader's running totals.
type LoaderCounts struct {
	Committed int
	Ignored   int
	Failed    int
	Batches   int
}

// Loader groups records into batches and commits each as a unit.
// Submit, Flush and Close must be called from a single goroutine; the
// commit mutex keeps at most one commit in flight regardless.
type Loader struct {
	dest      storage.Destination
	recorder  FailureRecorder
	capacity  int
	onOutcome func(*BatchOutcome)
	logger    *slog.Logger

	commitMu sync.Mutex
	current  *batch
	nextSeq  int
	counts   LoaderCounts
	closed   bool
}

// NewLoader creates a Loader. Capacity <= 0 uses DefaultBatchSize and is
// capped by the destination's storage.BatchLimiter, if any. onOutcome, when
// non-nil, is called after every flush.
func NewLoader(dest storage.Destination, recorder FailureRecorder, capacity int, onOutcome func(*BatchOutcome)) *Loader {
	if capacity <= 0 {
		capacity = DefaultBatchSize
	}
	if limiter, ok := dest.(storage.BatchLimiter); ok {
		if limit := limiter.MaxBatchSize(); limit > 0 && capacity > limit {
			capacity = limit
		}
	}
	l := &Loader{
		dest:      dest,
		recorder:  recorder,
		capacity:  capacity,
		onOutcome: onOutcome,
		logger:    slog.Default().With("component", "loader"),
	}
	l.current = l.newBatch()
	return l
}

// SetLogger replaces the loader's logger.
func (l *Loader) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.logger = logger.With("component", "loader")
	}
}

// Capacity returns the effective batch size.
func (l *Loader) Capacity() int {
	return l.capacity
}

func (l *Loader) newBatch() *batch {
	l.nextSeq++
	return &batch{seq: l.nextSeq, records: make([]*core.Record, 0, l.capacity), state: batchAccumulating}
}

// Submit appends record to the current batch, flushing when it is full.
// The returned outcome is nil unless a flush happened.
func (l *Loader) Submit(ctx context.Context, record *core.Record) (*BatchOutcome, error) {
	if l.closed {
		return nil, ErrLoaderClosed
	}
	l.current.records = append(l.current.records, record)
	if len(l.current.records) < l.capacity {
		return nil, nil
	}
	return l.Flush(ctx), nil
}

// Flush commits the current batch. It returns nil when the batch is empty.
func (l *Loader) Flush(ctx context.Context) *BatchOutcome {
	if len(l.current.records) == 0 {
		return nil
	}

	b := l.current
	l.current = l.newBatch()

	l.commitMu.Lock()
	b.state = batchCommitting
	result, err := l.dest.Commit(ctx, b.records)
	l.commitMu.Unlock()

	outcome := &BatchOutcome{Seq: b.seq, Records: b.records}
	l.counts.Batches++

	if err != nil {
		b.state = batchRolledBack
		outcome.Err = err
		outcome.Reason = core.ReasonOf(err, core.ReasonLoadError)
		l.counts.Failed += len(b.records)
		l.logger.Warn("batch rejected", "batch", b.seq, "state", b.state, "size", len(b.records), "reason", outcome.Reason, "error", err)
		for _, r := range b.records {
			l.record(core.FailureForRecord(r, outcome.Reason, err.Error()))
		}
	} else {
		b.state = batchCommitted
		outcome.Inserted = result.Inserted
		outcome.Ignored = result.Ignored
		outcome.IgnoredIDs = result.IgnoredIDs
		l.counts.Committed += result.Inserted
		l.counts.Ignored += result.Ignored
		l.logger.Debug("batch committed", "batch", b.seq, "state", b.state, "inserted", result.Inserted, "ignored", result.Ignored)
	}

	if l.onOutcome != nil {
		l.onOutcome(outcome)
	}
	return outcome
}

func (l *Loader) record(entry core.FailureEntry) {
	if l.recorder == nil {
		return
	}
	if err := l.recorder.Record(entry); err != nil {
		l.logger.Error("failed to record failure", "path", entry.Path, "error", err)
	}
}

// Close flushes the partial batch. Later calls are no-ops.
func (l *Loader) Close(ctx context.Context) *BatchOutcome {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.Flush(ctx)
}

// Pending returns the number of records in the current batch.
func (l *Loader) Pending() int {
	return len(l.current.records)
}

// Counts returns the running totals.
func (l *Loader) Counts() LoaderCounts {
	return l.counts
}
