package ingestion

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/poiesic/docimport/core"
)

// Status marks for per-item lines.
const (
	markCommitted = "✓"
	markQueued    = "+"
	markFailed    = "✗"
	markSkipped   = "-"
)

// reporter writes operator-facing output. It is only used from the writer goroutine.
type reporter struct {
	w     io.Writer
	total int
}

func newReporter(w io.Writer, total int) *reporter {
	if w == nil {
		w = io.Discard
	}
	return &reporter{w: w, total: total}
}

func (r *reporter) breakdown(counts map[string]int, total int) {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Fprintf(r.w, "Found %d documents:\n", total)
	for _, label := range labels {
		fmt.Fprintf(r.w, "  %-20s %d\n", label, counts[label])
	}
}

func (r *reporter) queued(i int, item core.SourceItem) {
	fmt.Fprintf(r.w, "[%d/%d] %s %s\n", i, r.total, markQueued, item.Name())
}

func (r *reporter) rejected(i int, item core.SourceItem, reason core.ReasonCode, skipped bool) {
	mark := markFailed
	if skipped {
		mark = markSkipped
	}
	fmt.Fprintf(r.w, "[%d/%d] %s %s (%s)\n", i, r.total, mark, item.Name(), reason)
}

func (r *reporter) batch(i int, o *BatchOutcome) {
	if o.Committed() {
		detail := fmt.Sprintf("%d records", o.Inserted)
		if o.Ignored > 0 {
			detail += fmt.Sprintf(", %d already present", o.Ignored)
		}
		fmt.Fprintf(r.w, "[%d/%d] %s batch %d committed (%s)\n", i, r.total, markCommitted, o.Seq, detail)
		return
	}
	fmt.Fprintf(r.w, "[%d/%d] %s batch %d rolled back (%d records, %s: %v)\n",
		i, r.total, markFailed, o.Seq, len(o.Records), o.Reason, o.Err)
}

func (r *reporter) summary(s *core.RunSummary) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "Import summary")
	fmt.Fprintf(r.w, "  Scanned:   %d\n", s.Scanned)
	fmt.Fprintf(r.w, "  Committed: %d\n", s.Committed)
	if s.Ignored > 0 {
		fmt.Fprintf(r.w, "  Existing:  %d\n", s.Ignored)
	}
	fmt.Fprintf(r.w, "  Failed:    %d\n", s.Failed)
	fmt.Fprintf(r.w, "  Skipped:   %d\n", s.Skipped)
	fmt.Fprintf(r.w, "  Success:   %.1f%%\n", s.SuccessRate())
	fmt.Fprintf(r.w, "  Elapsed:   %s\n", s.Elapsed.Round(time.Millisecond))

	labels := make([]string, 0, len(s.PerLabel))
	for label := range s.PerLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		c := s.PerLabel[label]
		fmt.Fprintf(r.w, "  %-20s scanned=%d committed=%d failed=%d skipped=%d",
			label, c.Scanned, c.Committed, c.Failed, c.Skipped)
		if c.Ignored > 0 {
			fmt.Fprintf(r.w, " existing=%d", c.Ignored)
		}
		fmt.Fprintln(r.w)
	}

	if s.Failed+s.Skipped > 0 && s.ErrorLogPath != "" {
		fmt.Fprintf(r.w, "Failures were logged to %s\n", s.ErrorLogPath)
	}
}

func (r *reporter) line(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}
