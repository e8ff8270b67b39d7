package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/reindex"
	"github.com/poiesic/docimport/scan"
	"github.com/poiesic/docimport/storage"
)

const (
	// DefaultReportInterval is how many documents pass between progress snapshots.
	DefaultReportInterval = 100

	defaultPingAttempts = 3
	defaultPingDelay    = 500 * time.Millisecond
)

// Source yields candidate documents.
type Source interface {
	Scan() iter.Seq[core.SourceItem]
}

// Extractor converts documents into text.
type Extractor interface {
	Check(ctx context.Context) error
	Extract(ctx context.Context, item core.SourceItem) core.ExtractionResult
}

// Reindexer asks the application to rebuild its search index.
type Reindexer interface {
	Trigger(ctx context.Context) error
}

// Pipeline orchestrates one import run: scan, extract, build, load.
// Extraction runs concurrently on a worker pool; everything else happens on
// the goroutine calling Run, in scan order.
type Pipeline struct {
	source    Source
	extractor Extractor
	dest      storage.Destination
	recorder  FailureRecorder

	pool           *ants.Pool
	poolSize       int
	batchSize      int
	reportInterval int
	pingAttempts   int
	pingDelay      time.Duration
	errorLogPath   string
	reindexURL     string

	builder   *Builder
	confirmer Confirmer
	reindexer Reindexer
	out       io.Writer
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the extraction worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		p.poolSize = size
		return nil
	}
}

// WithBatchSize sets the number of records committed together.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithConfirmer sets the confirmation gate.
// Default prompts on stdin when it is a terminal.
func WithConfirmer(c Confirmer) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.confirmer = c
		}
		return nil
	}
}

// WithReindexer sets the post-run index rebuild trigger.
// Without one, a recommendation naming the reindex call is printed instead.
func WithReindexer(r Reindexer) Option {
	return func(p *Pipeline) error {
		p.reindexer = r
		return nil
	}
}

// WithReindexURL sets the application URL used in the reindex recommendation.
func WithReindexURL(url string) Option {
	return func(p *Pipeline) error {
		p.reindexURL = url
		return nil
	}
}

// WithProgress sets where status lines, progress snapshots and the summary are written.
// Default is io.Discard.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		if w == nil {
			w = io.Discard
		}
		p.out = w
		return nil
	}
}

// WithReportInterval sets how many documents pass between progress snapshots.
func WithReportInterval(n int) Option {
	return func(p *Pipeline) error {
		p.reportInterval = n
		return nil
	}
}

// WithBuilder replaces the record builder.
func WithBuilder(b *Builder) Option {
	return func(p *Pipeline) error {
		if b != nil {
			p.builder = b
		}
		return nil
	}
}

// WithPingRetry sets how often the destination is pinged before giving up.
func WithPingRetry(attempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if attempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.pingAttempts = attempts
		p.pingDelay = baseDelay
		return nil
	}
}

// WithErrorLogPath records the failure log location in the summary.
func WithErrorLogPath(path string) Option {
	return func(p *Pipeline) error {
		p.errorLogPath = path
		return nil
	}
}

// NewPipeline creates a new import pipeline.
func NewPipeline(
	source Source,
	extractor Extractor,
	dest storage.Destination,
	recorder FailureRecorder,
	opts ...Option,
) (*Pipeline, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if dest == nil {
		return nil, ErrDestinationRequired
	}
	if recorder == nil {
		return nil, ErrRecorderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		source:         source,
		extractor:      extractor,
		dest:           dest,
		recorder:       recorder,
		pool:           pool,
		poolSize:       poolSize,
		batchSize:      DefaultBatchSize,
		reportInterval: DefaultReportInterval,
		pingAttempts:   defaultPingAttempts,
		pingDelay:      defaultPingDelay,
		builder:        NewBuilder(),
		out:            io.Discard,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.confirmer == nil {
		p.confirmer = NewTerminalConfirmer(p.out)
	}
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// pending is one document in the ordered look-ahead window.
type pending struct {
	item   core.SourceItem
	result chan core.ExtractionResult
}

// extractOrdered submits extraction jobs to the pool and returns them in scan
// order. At most cap(window) jobs run ahead of the consumer.
func (p *Pipeline) extractOrdered(ctx context.Context, items []core.SourceItem) <-chan *pending {
	window := make(chan *pending, p.poolSize*2)

	go func() {
		defer close(window)
		for _, item := range items {
			pd := &pending{item: item, result: make(chan core.ExtractionResult, 1)}
			select {
			case window <- pd:
			case <-ctx.Done():
				return
			}
			err := p.pool.Submit(func() {
				pd.result <- p.extractor.Extract(ctx, pd.item)
			})
			if err != nil {
				pd.result <- core.ExtractionFailed(core.ReasonFileReadError, fmt.Errorf("schedule extraction: %w", err))
			}
		}
	}()

	return window
}

// Run executes one import. Individual document failures are recorded and
// counted, never returned. The summary is returned whenever the run got past
// its start-up checks.
func (p *Pipeline) Run(ctx context.Context) (*core.RunSummary, error) {
	start := time.Now()

	if err := p.extractor.Check(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecoderUnavailable, err)
	}

	err := RetryWithBackoff(ctx, func() error { return p.dest.Ping(ctx) }, p.pingAttempts, p.pingDelay)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDestinationUnavailable, err)
	}

	items := slices.Collect(p.source.Scan())
	summary := core.NewRunSummary()
	summary.ErrorLogPath = p.errorLogPath
	summary.Scanned = len(items)
	for _, item := range items {
		summary.Label(item.Label).Scanned++
	}
	if len(items) == 0 {
		return summary, ErrNoCandidates
	}

	rep := newReporter(p.out, len(items))
	rep.breakdown(scan.Breakdown(items), len(items))

	ok, err := p.confirmer.Confirm(ctx, Prompt{Candidates: len(items), Destination: describe(p.dest)})
	if err != nil {
		return summary, err
	}
	if !ok {
		return summary, ErrCancelled
	}

	p.logger.Info("import started", "documents", len(items), "batch_size", p.batchSize, "workers", p.poolSize)

	// Commits and finalize outlive cancellation so an interrupted run stops
	// after the batch in hand rather than in the middle of one.
	commitCtx := context.WithoutCancel(ctx)
	extractCtx, cancelExtract := context.WithCancel(ctx)
	defer cancelExtract()

	position := 0
	loader := NewLoader(p.dest, p.recorder, p.batchSize, func(o *BatchOutcome) {
		rep.batch(position, o)
		p.applyOutcome(summary, o)
	})
	loader.SetLogger(p.logger)

	tracker := NewProgressTracker(p.out, len(items), p.reportInterval)
	tracker.Start()

	for pd := range p.extractOrdered(extractCtx, items) {
		if ctx.Err() != nil {
			break
		}
		position++
		result := <-pd.result

		record, buildErr := p.builder.Build(pd.item, result)
		if buildErr != nil {
			p.reject(summary, rep, position, pd.item, buildErr)
		} else {
			rep.queued(position, pd.item)
			if _, err := loader.Submit(commitCtx, record); err != nil {
				return summary, err
			}
		}
		tracker.Advance(buildErr != nil)
	}
	cancelExtract()

	loader.Close(commitCtx)

	if err := p.finalize(commitCtx, summary); err != nil {
		summary.Elapsed = time.Since(start)
		rep.summary(summary)
		return summary, err
	}

	p.afterImport(commitCtx, summary, rep)

	summary.Elapsed = time.Since(start)
	rep.summary(summary)
	p.logger.Info("import finished",
		"committed", summary.Committed, "failed", summary.Failed,
		"skipped", summary.Skipped, "ignored", summary.Ignored, "elapsed", summary.Elapsed)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (p *Pipeline) reject(summary *core.RunSummary, rep *reporter, position int, item core.SourceItem, err error) {
	reason := core.ReasonOf(err, core.ReasonValidationError)
	skipped := isSkip(reason)
	counts := summary.Label(item.Label)
	if skipped {
		summary.Skipped++
		counts.Skipped++
	} else {
		summary.Failed++
		counts.Failed++
	}

	rep.rejected(position, item, reason, skipped)
	p.logger.Debug("document rejected", "path", item.Path, "reason", reason, "error", err)

	if recErr := p.recorder.Record(core.FailureForItem(item, reason, failureMessage(err))); recErr != nil {
		p.logger.Error("failed to record failure", "path", item.Path, "error", recErr)
	}
}

func (p *Pipeline) applyOutcome(summary *core.RunSummary, o *BatchOutcome) {
	if !o.Committed() {
		summary.Failed += len(o.Records)
		for _, r := range o.Records {
			summary.Label(r.Label).Failed++
		}
		return
	}
	summary.Committed += o.Inserted
	summary.Ignored += o.Ignored

	ignored := make(map[string]int, len(o.IgnoredIDs))
	for _, id := range o.IgnoredIDs {
		ignored[id]++
	}
	for _, r := range o.Records {
		counts := summary.Label(r.Label)
		if ignored[r.ID] > 0 {
			ignored[r.ID]--
			counts.Ignored++
			continue
		}
		counts.Committed++
	}
}

// finalize runs the destination's end-of-run step. A staging destination that
// fails here never persisted anything, so its records become DB_ERROR failures.
func (p *Pipeline) finalize(ctx context.Context, summary *core.RunSummary) error {
	err := p.dest.Finalize(ctx, summary.Committed)
	if err == nil {
		return nil
	}

	stager, ok := p.dest.(storage.Stager)
	if !ok {
		p.logger.Warn("finalize failed; committed records are unaffected", "error", err)
		return nil
	}

	reason := core.ReasonOf(err, core.ReasonDBError)
	staged := stager.Staged()
	for _, r := range staged {
		if recErr := p.recorder.Record(core.FailureForRecord(r, reason, err.Error())); recErr != nil {
			p.logger.Error("failed to record failure", "path", r.SourcePath, "error", recErr)
		}
		counts := summary.Label(r.Label)
		counts.Committed--
		counts.Failed++
	}
	summary.Committed = max(summary.Committed-len(staged), 0)
	summary.Failed += len(staged)
	p.logger.Error("finalize failed; staged records were not written", "records", len(staged), "error", err)
	return err
}

// afterImport signals the index rebuild, or tells the operator how to.
func (p *Pipeline) afterImport(ctx context.Context, summary *core.RunSummary, rep *reporter) {
	if summary.Committed == 0 {
		return
	}
	if p.reindexer == nil {
		rep.line("%s", reindex.Recommendation(p.reindexURL))
		return
	}
	err := RetryWithBackoff(ctx, func() error { return p.reindexer.Trigger(ctx) }, 3, time.Second)
	if err != nil {
		p.logger.Warn("reindex trigger failed", "error", err)
		rep.line("%s", reindex.Recommendation(p.reindexURL))
		return
	}
	rep.line("Search index rebuild requested")
}

func isSkip(reason core.ReasonCode) bool {
	return reason == core.ReasonEmptyContent || reason == core.ReasonUnsupportedFormat
}

func failureMessage(err error) string {
	var re *core.ReasonError
	if errors.As(err, &re) && re.Err != nil {
		return re.Err.Error()
	}
	return err.Error()
}

func describe(dest storage.Destination) string {
	if d, ok := dest.(storage.Describer); ok {
		return d.Describe()
	}
	return "the destination"
}
