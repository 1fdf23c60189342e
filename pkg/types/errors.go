package types

import (
	"errors"
	"fmt"
)

// Domain errors for type validation and the engine error taxonomy.
var (
	// Validation errors
	ErrMissingDocumentID = errors.New("document ID is required")
	ErrEmptyContent      = errors.New("content cannot be empty")
	ErrInvalidChunkSpan  = errors.New("chunk seq and offset must be >= 0")
	ErrInvalidScore      = errors.New("score must be between 0 and 1")
	ErrEmptyQuery        = errors.New("query cannot be empty")

	// ErrEmbeddingUnavailable marks a provider-level failure. It affects every
	// file, so it halts the current scan cycle; prior state stays intact.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrIndexCorrupt marks persisted state that cannot be trusted. Detected
	// on load; the store degrades to empty and a full re-index follows.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrQueryConstraint marks a query constraint that could not be parsed.
	// The constraint is dropped and the query proceeds degraded.
	ErrQueryConstraint = errors.New("unparsable query constraint")
)

// ExtractionError reports a per-file extraction failure. It is recoverable:
// the path is recorded, skipped, and retried on the next scan.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError wraps err as a recoverable per-file failure.
func NewExtractionError(path string, err error) *ExtractionError {
	return &ExtractionError{Path: path, Err: err}
}

// IsExtractionError reports whether err is a per-file extraction failure.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
