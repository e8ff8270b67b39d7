package core

import (
	"encoding/binary"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// Format identifies the binary layout of a source document.
type Format int

const (
	// FormatDoc is the legacy binary word-processor format (.doc).
	FormatDoc Format = iota + 1
	// FormatDocx is the zipped XML word-processor format (.docx).
	FormatDocx
)

func (f Format) String() string {
	switch f {
	case FormatDoc:
		return "doc"
	case FormatDocx:
		return "docx"
	default:
		return "unknown"
	}
}

// FormatFromExt maps a file extension (with or without the leading dot)
// to a supported Format. Matching is case-insensitive.
func FormatFromExt(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "doc":
		return FormatDoc, true
	case "docx":
		return FormatDocx, true
	default:
		return 0, false
	}
}

// SourceItem is one candidate document found by the scanner.
type SourceItem struct {
	Path   string
	Label  string
	Format Format
}

// Name returns the base filename of the item.
func (s SourceItem) Name() string {
	return filepath.Base(s.Path)
}

// Stem returns the filename without its extension.
func (s SourceItem) Stem() string {
	name := s.Name()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ExtractionResult holds either the extracted text or the reason extraction failed.
type ExtractionResult struct {
	Text   string
	Reason ReasonCode // empty when extraction succeeded
	Err    error
}

// Extracted returns a successful result.
func Extracted(text string) ExtractionResult {
	return ExtractionResult{Text: text}
}

// ExtractionFailed returns a failed result.
func ExtractionFailed(reason ReasonCode, err error) ExtractionResult {
	return ExtractionResult{Reason: reason, Err: err}
}

// Failed reports whether extraction failed.
func (r ExtractionResult) Failed() bool {
	return r.Reason != ""
}

// TranslationFlag marks whether a record is a translation of another.
type TranslationFlag string

const (
	TranslationYes TranslationFlag = "yes"
	TranslationNo  TranslationFlag = "no"
)

// Record is the normalized output for one source document.
type Record struct {
	ID          string
	Title       string
	Body        string
	Label       string
	Author      string
	Translation TranslationFlag
	Checksum    uint64 // blake2b digest of Body
	SourcePath  string // provenance, used for failure reporting
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewID returns a random 128-bit identifier.
func NewID() string {
	return uuid.NewString()
}

// ContentChecksum returns a 64-bit digest of the given text.
func ContentChecksum(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// FailureEntry is one row of the failure log.
type FailureEntry struct {
	Timestamp time.Time
	Filename  string
	Label     string
	Path      string
	Reason    ReasonCode
	Message   string
}

// FailureForItem builds a failure entry describing a source item.
func FailureForItem(item SourceItem, reason ReasonCode, message string) FailureEntry {
	return FailureEntry{
		Timestamp: time.Now(),
		Filename:  item.Name(),
		Label:     item.Label,
		Path:      item.Path,
		Reason:    reason,
		Message:   message,
	}
}

// FailureForRecord builds a failure entry describing a record that could not be persisted.
func FailureForRecord(record *Record, reason ReasonCode, message string) FailureEntry {
	return FailureEntry{
		Timestamp: time.Now(),
		Filename:  filepath.Base(record.SourcePath),
		Label:     record.Label,
		Path:      record.SourcePath,
		Reason:    reason,
		Message:   message,
	}
}

// LabelCounts tallies outcomes for a single label.
type LabelCounts struct {
	Scanned   int
	Committed int
	Ignored   int
	Failed    int
	Skipped   int
}

// RunSummary reports the outcome of one run.
type RunSummary struct {
	Scanned      int
	Committed    int
	Failed       int
	Skipped      int
	Ignored      int // duplicate identifiers dropped by the destination
	PerLabel     map[string]*LabelCounts
	ErrorLogPath string
	Elapsed      time.Duration
}

// NewRunSummary returns an empty summary.
func NewRunSummary() *RunSummary {
	return &RunSummary{PerLabel: make(map[string]*LabelCounts)}
}

// Label returns the counts for label, creating them if needed.
func (s *RunSummary) Label(label string) *LabelCounts {
	c, ok := s.PerLabel[label]
	if !ok {
		c = &LabelCounts{}
		s.PerLabel[label] = c
	}
	return c
}

// Processed returns the number of items that reached a terminal outcome.
func (s *RunSummary) Processed() int {
	return s.Committed + s.Failed + s.Skipped + s.Ignored
}

// SuccessRate returns committed/scanned as a percentage.
func (s *RunSummary) SuccessRate() float64 {
	if s.Scanned == 0 {
		return 0
	}
	return float64(s.Committed) / float64(s.Scanned) * 100.0
}
