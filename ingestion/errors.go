package ingestion

import "errors"

var (
	// ErrSourceRequired is returned when no scanner is provided.
	ErrSourceRequired = errors.New("source required")

	// ErrExtractorRequired is returned when no extractor is provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrDestinationRequired is returned when no destination is provided.
	ErrDestinationRequired = errors.New("destination required")

	// ErrRecorderRequired is returned when no failure recorder is provided.
	ErrRecorderRequired = errors.New("failure recorder required")

	// ErrDecoderUnavailable is returned when a start-up extraction check fails.
	ErrDecoderUnavailable = errors.New("extraction capability unavailable")

	// ErrDestinationUnavailable is returned when the destination cannot be reached at start.
	ErrDestinationUnavailable = errors.New("destination unavailable")

	// ErrNoCandidates is returned when the scan finds nothing to import.
	ErrNoCandidates = errors.New("no documents found")

	// ErrCancelled is returned when the operator declines the confirmation gate.
	ErrCancelled = errors.New("import cancelled")

	// ErrNonInteractive is returned when confirmation is required but no answer can be read.
	ErrNonInteractive = errors.New("running in non-interactive mode; use --yes to confirm")

	// ErrLoaderClosed is returned when submitting to a closed loader.
	ErrLoaderClosed = errors.New("loader closed")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
