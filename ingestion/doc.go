// Package ingestion runs the document import pipeline.
//
// The Pipeline type drives a single pass over the scanned documents:
//   - Extracting text concurrently on a bounded worker pool
//   - Building and validating one Record per document, in scan order
//   - Loading records in fixed-size batches, one atomic commit at a time
//   - Recording every failed or skipped document in the failure log
//
// Individual document failures never abort a run. Only start-up checks (the
// extraction tool is missing, the destination is unreachable) and a failed
// end-of-run finalize are returned as errors.
package ingestion
