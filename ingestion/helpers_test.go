package ingestion

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/storage"
	"github.com/stretchr/testify/require"
)

// testDestination implements storage.Destination for testing.
type testDestination struct {
	mu sync.Mutex

	pingErr     error
	pingCalls   int
	commitFunc  func(batch int, records []*core.Record) (storage.CommitResult, error)
	finalizeErr error

	batches   [][]*core.Record
	stored    []*core.Record
	finalized []int
	closed    bool
}

func (d *testDestination) Ping(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pingCalls++
	return d.pingErr
}

func (d *testDestination) Commit(ctx context.Context, records []*core.Record) (storage.CommitResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	batch := append([]*core.Record(nil), records...)
	d.batches = append(d.batches, batch)
	if d.commitFunc != nil {
		result, err := d.commitFunc(len(d.batches), batch)
		if err != nil {
			return storage.CommitResult{}, err
		}
		d.stored = append(d.stored, batch...)
		return result, nil
	}
	d.stored = append(d.stored, batch...)
	return storage.CommitResult{Inserted: len(batch)}, nil
}

func (d *testDestination) Finalize(ctx context.Context, committed int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finalized = append(d.finalized, committed)
	return d.finalizeErr
}

func (d *testDestination) Close() error {
	d.closed = true
	return nil
}

func (d *testDestination) Describe() string {
	return "test destination"
}

// stagingDestination stages records and only persists them on Finalize.
type stagingDestination struct {
	testDestination
}

func (d *stagingDestination) Staged() []*core.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*core.Record(nil), d.stored...)
}

// memoryRecorder implements FailureRecorder for testing.
type memoryRecorder struct {
	mu      sync.Mutex
	entries []core.FailureEntry
}

func (r *memoryRecorder) Record(entry core.FailureEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryRecorder) Entries() []core.FailureEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.FailureEntry(nil), r.entries...)
}

func (r *memoryRecorder) Reasons() map[core.ReasonCode]int {
	reasons := make(map[core.ReasonCode]int)
	for _, e := range r.Entries() {
		reasons[e.Reason]++
	}
	return reasons
}

// sliceSource implements Source over a fixed list.
type sliceSource []core.SourceItem

func (s sliceSource) Scan() iter.Seq[core.SourceItem] {
	return func(yield func(core.SourceItem) bool) {
		for _, item := range s {
			if !yield(item) {
				return
			}
		}
	}
}

// writeDocs writes name -> content pairs under dir and returns the items in order.
func writeDocs(t *testing.T, dir, label string, docs ...[2]string) []core.SourceItem {
	t.Helper()
	items := make([]core.SourceItem, 0, len(docs))
	for _, doc := range docs {
		path := filepath.Join(dir, doc[0])
		require.NoError(t, os.WriteFile(path, []byte(doc[1]), 0o644))
		items = append(items, core.SourceItem{Path: path, Label: label, Format: core.FormatDocx})
	}
	return items
}

func testRecord(id, label string) *core.Record {
	return &core.Record{
		ID:          id,
		Title:       "title " + id,
		Body:        "body " + id,
		Label:       label,
		Translation: core.TranslationNo,
		SourcePath:  "/songs/" + label + "/" + id + ".docx",
	}
}
