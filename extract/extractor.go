package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/poiesic/docimport/core"
)

// Decoder converts one document into plain text.
type Decoder interface {
	Decode(ctx context.Context, path string) (string, error)
}

// Checker is implemented by decoders with start-up preconditions.
type Checker interface {
	Check(ctx context.Context) error
}

// Extractor dispatches items to the decoder registered for their format.
type Extractor struct {
	decoders map[core.Format]Decoder
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDecoder registers decoder for format, replacing any existing one.
func WithDecoder(format core.Format, decoder Decoder) Option {
	return func(e *Extractor) {
		if decoder == nil {
			delete(e.decoders, format)
			return
		}
		e.decoders[format] = decoder
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Extractor with no decoders registered.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		decoders: make(map[core.Format]Decoder),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "extractor")
	return e
}

// NewDefault creates an Extractor for .doc (antiword via runner) and .docx.
func NewDefault(runner CommandRunner, antiwordOpts []AntiwordOption, opts ...Option) *Extractor {
	base := []Option{
		WithDecoder(core.FormatDoc, NewAntiwordDecoder(runner, antiwordOpts...)),
		WithDecoder(core.FormatDocx, NewDocxDecoder()),
	}
	return New(append(base, opts...)...)
}

// Check runs every registered decoder's precondition check.
func (e *Extractor) Check(ctx context.Context) error {
	formats := make([]int, 0, len(e.decoders))
	for f := range e.decoders {
		formats = append(formats, int(f))
	}
	sort.Ints(formats)

	var errs []error
	for _, f := range formats {
		if c, ok := e.decoders[core.Format(f)].(Checker); ok {
			if err := c.Check(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Extract decodes item. It never returns an error; failures are carried in the result.
func (e *Extractor) Extract(ctx context.Context, item core.SourceItem) (result core.ExtractionResult) {
	decoder, ok := e.decoders[item.Format]
	if !ok {
		return core.ExtractionFailed(core.ReasonUnsupportedFormat,
			fmt.Errorf("%w: %s", ErrUnsupportedFormat, item.Format))
	}

	info, err := os.Stat(item.Path)
	if err != nil {
		return core.ExtractionFailed(core.ReasonFileReadError, err)
	}
	if info.Size() == 0 {
		return core.Extracted("")
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("decoder panicked", "path", item.Path, "panic", r)
			result = core.ExtractionFailed(core.ReasonFileReadError, fmt.Errorf("decoder panic: %v", r))
		}
	}()

	text, err := decoder.Decode(ctx, item.Path)
	if err != nil {
		e.logger.Debug("decode failed", "path", item.Path, "error", err)
		return core.ExtractionFailed(core.ReasonFileReadError, err)
	}
	return core.Extracted(text)
}
