package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docimport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRecord(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name   string
		record *core.Record
	}{
		{
			name: "full record",
			record: &core.Record{
				ID:          core.NewID(),
				Title:       "Cielito Lindo",
				Body:        "De la Sierra Morena\ncielito lindo, vienen bajando",
				Label:       "spanish",
				Author:      "Quirino Mendoza",
				Translation: core.TranslationYes,
				Checksum:    core.ContentChecksum("De la Sierra Morena"),
				SourcePath:  "/data/spanish/Cielito Lindo.docx",
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		},
		{
			name: "zero timestamps and empty author",
			record: &core.Record{
				ID:          "id",
				Title:       "t",
				Body:        "b",
				Label:       "l",
				Translation: core.TranslationNo,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalRecord(tt.record)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalRecord(data)
			require.NoError(t, err)
			assert.Equal(t, tt.record.ID, decoded.ID)
			assert.Equal(t, tt.record.Body, decoded.Body)
			assert.Equal(t, tt.record.Author, decoded.Author)
			assert.Equal(t, tt.record.Translation, decoded.Translation)
			assert.Equal(t, tt.record.Checksum, decoded.Checksum)
			assert.True(t, tt.record.CreatedAt.Equal(decoded.CreatedAt))
		})
	}
}

func TestUnmarshalRecord_Invalid(t *testing.T) {
	_, err := UnmarshalRecord([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestCounterRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 1 << 40} {
		got, err := UnmarshalCounter(MarshalCounter(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}

	_, err := UnmarshalCounter([]byte{1, 2})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
