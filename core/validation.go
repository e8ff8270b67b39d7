// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - ID, Title, Label and Body must not be empty
//   - Body and Title must be valid UTF-8 without NUL bytes
//   - Translation must be "yes" or "no"
//
// NOT validated:
//   - Author (empty is the default)
//   - Title uniqueness (duplicate stems across labels are separate records)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyID)
	}

	if record.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyTitle)
	}

	if record.Label == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyLabel)
	}

	if record.Body == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyContent)
	}

	if !IsStorableText(record.Body) || !IsStorableText(record.Title) {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrInvalidEncoding)
	}

	if err := ValidateTranslationFlag(record.Translation); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	return nil
}

// ValidateTranslationFlag validates that a TranslationFlag has a known value.
func ValidateTranslationFlag(flag TranslationFlag) error {
	if flag != TranslationYes && flag != TranslationNo {
		return fmt.Errorf("%w: value %q", ErrInvalidTranslationFlag, flag)
	}
	return nil
}

// IsStorableText reports whether s is valid UTF-8 and free of NUL bytes.
func IsStorableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
