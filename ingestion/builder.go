package ingestion

import (
	"strings"
	"time"

	"github.com/poiesic/docimport/core"
)

// Builder turns an extraction result into a validated Record.
type Builder struct {
	newID func() string
	now   func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(fn func() string) BuilderOption {
	return func(b *Builder) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(fn func() time.Time) BuilderOption {
	return func(b *Builder) {
		if fn != nil {
			b.now = fn
		}
	}
}

// NewBuilder creates a Builder using random identifiers and the wall clock.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		newID: core.NewID,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns a Record for item, or a *core.ReasonError explaining why none was produced.
func (b *Builder) Build(item core.SourceItem, result core.ExtractionResult) (*core.Record, error) {
	if result.Failed() {
		return nil, core.NewReasonError(result.Reason, result.Err)
	}

	body := strings.TrimSpace(result.Text)
	if body == "" {
		return nil, core.NewReasonError(core.ReasonEmptyContent, core.ErrEmptyContent)
	}

	now := b.now()
	record := &core.Record{
		ID:          b.newID(),
		Title:       item.Stem(),
		Body:        body,
		Label:       item.Label,
		Translation: core.TranslationNo,
		Checksum:    core.ContentChecksum(body),
		SourcePath:  item.Path,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := core.ValidateRecord(record); err != nil {
		return nil, core.NewReasonError(core.ReasonValidationError, err)
	}
	return record, nil
}
