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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyContent indicates the Body field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptyLabel indicates the Label field is empty.
	ErrEmptyLabel = errors.New("label cannot be empty")

	// ErrEmptyID indicates the ID field is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrInvalidEncoding indicates text that is not valid UTF-8 or contains NUL bytes.
	ErrInvalidEncoding = errors.New("content is not valid UTF-8 text")

	// ErrInvalidTranslationFlag indicates an unknown TranslationFlag value.
	ErrInvalidTranslationFlag = errors.New("invalid translation flag")
)

// ReasonCode classifies why an item failed or was skipped.
type ReasonCode string

const (
	ReasonUnsupportedFormat ReasonCode = "UNSUPPORTED_FORMAT"
	ReasonFileReadError     ReasonCode = "FILE_READ_ERROR"
	ReasonEmptyContent      ReasonCode = "EMPTY_CONTENT"
	ReasonValidationError   ReasonCode = "VALIDATION_ERROR"
	ReasonLoadError         ReasonCode = "LOAD_ERROR"
	ReasonNetworkError      ReasonCode = "NETWORK_ERROR"
	ReasonTimeout           ReasonCode = "TIMEOUT"
	ReasonDBError           ReasonCode = "DB_ERROR"
)

// ReasonError attaches a ReasonCode to an error.
type ReasonError struct {
	Reason ReasonCode
	Err    error
}

// NewReasonError wraps err with reason.
func NewReasonError(reason ReasonCode, err error) *ReasonError {
	return &ReasonError{Reason: reason, Err: err}
}

func (e *ReasonError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ReasonError) Unwrap() error {
	return e.Err
}

// ReasonOf returns the ReasonCode carried by err, or fallback when none is attached.
func ReasonOf(err error, fallback ReasonCode) ReasonCode {
	var re *ReasonError
	if errors.As(err, &re) && re.Reason != "" {
		return re.Reason
	}
	return fallback
}
