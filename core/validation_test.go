package core

import (
	"errors"
	"testing"
)

func validRecord() *Record {
	return &Record{
		ID:          NewID(),
		Title:       "Amazing Grace",
		Body:        "Amazing grace, how sweet the sound",
		Label:       "english",
		Translation: TranslationNo,
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Record)
		wantErr error
	}{
		{
			name:    "valid record",
			mutate:  func(r *Record) {},
			wantErr: nil,
		},
		{
			name:    "valid record with author",
			mutate:  func(r *Record) { r.Author = "John Newton" },
			wantErr: nil,
		},
		{
			name:    "valid translation",
			mutate:  func(r *Record) { r.Translation = TranslationYes },
			wantErr: nil,
		},
		{
			name:    "empty id",
			mutate:  func(r *Record) { r.ID = "" },
			wantErr: ErrEmptyID,
		},
		{
			name:    "empty title",
			mutate:  func(r *Record) { r.Title = "" },
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "empty label",
			mutate:  func(r *Record) { r.Label = "" },
			wantErr: ErrEmptyLabel,
		},
		{
			name:    "empty body",
			mutate:  func(r *Record) { r.Body = "" },
			wantErr: ErrEmptyContent,
		},
		{
			name:    "invalid utf8 body",
			mutate:  func(r *Record) { r.Body = "bad \xff\xfe bytes" },
			wantErr: ErrInvalidEncoding,
		},
		{
			name:    "NUL in body",
			mutate:  func(r *Record) { r.Body = "line\x00line" },
			wantErr: ErrInvalidEncoding,
		},
		{
			name:    "NUL in title",
			mutate:  func(r *Record) { r.Title = "ti\x00tle" },
			wantErr: ErrInvalidEncoding,
		},
		{
			name:    "unknown translation flag",
			mutate:  func(r *Record) { r.Translation = "maybe" },
			wantErr: ErrInvalidTranslationFlag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(record)
			err := ValidateRecord(record)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRecord() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Errorf("ValidateRecord() error = nil, want %v", tt.wantErr)
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("ValidateRecord() error = %v, want wrapped %v", err, ErrInvalidRecord)
			}
		})
	}
}

func TestValidateRecordNil(t *testing.T) {
	if err := ValidateRecord(nil); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("ValidateRecord(nil) error = %v, want %v", err, ErrInvalidRecord)
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback ReasonCode
		want     ReasonCode
	}{
		{
			name:     "plain error uses fallback",
			err:      errors.New("boom"),
			fallback: ReasonLoadError,
			want:     ReasonLoadError,
		},
		{
			name:     "reason error",
			err:      NewReasonError(ReasonTimeout, errors.New("deadline")),
			fallback: ReasonLoadError,
			want:     ReasonTimeout,
		},
		{
			name:     "wrapped reason error",
			err:      errors.Join(errors.New("outer"), NewReasonError(ReasonNetworkError, nil)),
			fallback: ReasonLoadError,
			want:     ReasonNetworkError,
		},
		{
			name:     "nil error uses fallback",
			err:      nil,
			fallback: ReasonDBError,
			want:     ReasonDBError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReasonOf(tt.err, tt.fallback); got != tt.want {
				t.Errorf("ReasonOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReasonErrorMessage(t *testing.T) {
	err := NewReasonError(ReasonEmptyContent, nil)
	if err.Error() != "EMPTY_CONTENT" {
		t.Errorf("Error() = %q, want %q", err.Error(), "EMPTY_CONTENT")
	}

	inner := errors.New("no text")
	err = NewReasonError(ReasonFileReadError, inner)
	if err.Error() != "FILE_READ_ERROR: no text" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("ReasonError should unwrap to inner error")
	}
}
