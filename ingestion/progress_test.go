package ingestion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_SnapshotsEveryInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 250, 100)
	tracker.Start()

	for i := 0; i < 250; i++ {
		tracker.Advance(i%50 == 0)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Progress: 100/250 (40.0%) 2 rejected"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Progress: 200/250 (80.0%) 4 rejected"), lines[1])
	assert.Equal(t, 250, tracker.Processed())
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Advance(false)

	assert.Zero(t, tracker.Processed())
	assert.Zero(t, tracker.Elapsed())
	assert.Empty(t, buf.String())
}

func TestProgressTracker_StopsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 3, 3)
	tracker.Start()

	for i := 0; i < 5; i++ {
		tracker.Advance(false)
	}

	assert.Equal(t, 3, tracker.Processed())
	assert.Equal(t, 1, strings.Count(buf.String(), "Progress:"))
	assert.Contains(t, buf.String(), "3/3 (100.0%)")
}

func TestProgressTracker_DisabledInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 0)
	tracker.Start()

	for i := 0; i < 10; i++ {
		tracker.Advance(false)
	}

	assert.Empty(t, buf.String())
}
