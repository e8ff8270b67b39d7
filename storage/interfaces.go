package storage

import (
	"context"

	"github.com/poiesic/docimport/core"
)

// CommitResult reports how a committed batch was applied.
type CommitResult struct {
	// Inserted is the number of new records made visible.
	Inserted int
	// Ignored is the number of records skipped because their identifier already existed.
	Ignored int
	// IgnoredIDs lists the skipped identifiers in batch order. Its length equals Ignored.
	IgnoredIDs []string
}

// Destination is the target store for records.
// Implementations must be safe for use from multiple goroutines.
type Destination interface {
	// Ping verifies the destination is reachable.
	Ping(ctx context.Context) error

	// Commit persists records as one atomic unit.
	// On error nothing from the batch is visible. Errors may carry a
	// *core.ReasonError describing the failure class.
	Commit(ctx context.Context, records []*core.Record) (CommitResult, error)

	// Finalize runs end-of-run work, such as bumping the edit counter by
	// committed. It is called once, after the last Commit.
	Finalize(ctx context.Context, committed int) error

	// Close releases resources.
	Close() error
}

// Stager is implemented by destinations whose commits only stage records and
// whose Finalize performs the actual write. If Finalize fails the staged
// records were never persisted.
type Stager interface {
	Staged() []*core.Record
}

// BatchLimiter is implemented by destinations that cannot make a multi-record
// batch atomic. MaxBatchSize caps the loader's batch capacity.
type BatchLimiter interface {
	MaxBatchSize() int
}

// Describer is implemented by destinations that can name themselves for the
// confirmation prompt.
type Describer interface {
	Describe() string
}
