package ingestion

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/docimport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewBuilder(
		WithIDGenerator(func() string { return "fixed-id" }),
		WithClock(func() time.Time { return now }),
	)
	item := core.SourceItem{Path: "/songs/Spanish/Sublime Gracia.doc", Label: "Spanish", Format: core.FormatDoc}

	record, err := b.Build(item, core.Extracted("  \n Sublime gracia del Señor\nque a un infeliz salvó \n\n"))
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", record.ID)
	assert.Equal(t, "Sublime Gracia", record.Title)
	assert.Equal(t, "Sublime gracia del Señor\nque a un infeliz salvó", record.Body)
	assert.Equal(t, "Spanish", record.Label)
	assert.Equal(t, core.TranslationNo, record.Translation)
	assert.Equal(t, core.ContentChecksum(record.Body), record.Checksum)
	assert.Equal(t, item.Path, record.SourcePath)
	assert.Equal(t, now, record.CreatedAt)
	assert.Equal(t, now, record.UpdatedAt)
}

func TestBuilder_Build_DistinctIDs(t *testing.T) {
	b := NewBuilder()
	item := core.SourceItem{Path: "/songs/English/Same.docx", Label: "English", Format: core.FormatDocx}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		record, err := b.Build(item, core.Extracted(fmt.Sprintf("verse %d", i)))
		require.NoError(t, err)
		assert.False(t, seen[record.ID], "identifier reused: %s", record.ID)
		seen[record.ID] = true
	}
}

func TestBuilder_Build_Rejections(t *testing.T) {
	item := core.SourceItem{Path: "/songs/English/Hymn.docx", Label: "English", Format: core.FormatDocx}
	decodeErr := errors.New("corrupt archive")

	tests := []struct {
		name   string
		item   core.SourceItem
		result core.ExtractionResult
		reason core.ReasonCode
		target error
	}{
		{"whitespace only", item, core.Extracted(" \n\t "), core.ReasonEmptyContent, core.ErrEmptyContent},
		{"empty text", item, core.Extracted(""), core.ReasonEmptyContent, core.ErrEmptyContent},
		{"extraction failed", item, core.ExtractionFailed(core.ReasonFileReadError, decodeErr), core.ReasonFileReadError, decodeErr},
		{"unsupported", item, core.ExtractionFailed(core.ReasonUnsupportedFormat, nil), core.ReasonUnsupportedFormat, nil},
		{
			"empty label",
			core.SourceItem{Path: "/songs/Hymn.docx", Format: core.FormatDocx},
			core.Extracted("text"),
			core.ReasonValidationError,
			core.ErrEmptyLabel,
		},
	}

	b := NewBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := b.Build(tt.item, tt.result)
			require.Error(t, err)
			assert.Nil(t, record)
			assert.Equal(t, tt.reason, core.ReasonOf(err, ""))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}
