package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a snapshot line every interval processed documents.
type ProgressTracker struct {
	mu        sync.Mutex
	w         io.Writer
	total     int
	interval  int
	processed int
	rejected  int
	next      int
	began     time.Time
	running   bool
}

// NewProgressTracker creates a tracker for total documents. An interval
// <= 0 disables snapshots.
func NewProgressTracker(w io.Writer, total, interval int) *ProgressTracker {
	if w == nil {
		w = io.Discard
	}
	return &ProgressTracker{w: w, total: total, interval: interval}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.began = time.Now()
	p.running = true
	p.processed = 0
	p.rejected = 0
	p.next = p.interval
}

// Advance counts one processed document. Advance before Start is ignored.
func (p *ProgressTracker) Advance(rejected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running || p.processed >= p.total {
		return
	}
	p.processed++
	if rejected {
		p.rejected++
	}

	if p.interval > 0 && p.processed >= p.next {
		p.snapshot()
		p.next += p.interval
	}
}

// Processed returns the number of documents counted so far.
func (p *ProgressTracker) Processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return 0
	}
	return time.Since(p.began)
}

// snapshot must be called with mu held.
func (p *ProgressTracker) snapshot() {
	var rate, pct float64
	if secs := time.Since(p.began).Seconds(); secs > 0 {
		rate = float64(p.processed) / secs
	}
	if p.total > 0 {
		pct = float64(p.processed) / float64(p.total) * 100
	}
	fmt.Fprintf(p.w, "Progress: %d/%d (%.1f%%) %d rejected, %.1f docs/s\n",
		p.processed, p.total, pct, p.rejected, rate)
}
