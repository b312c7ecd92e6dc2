package analysis

import "errors"

// Error types for the analysis package.
var (
	// ErrSpanMismatch is returned when a span's recorded source text no
	// longer matches the original text at its range, or its range is out
	// of bounds. The span is stale or corrupt and is discarded.
	ErrSpanMismatch = errors.New("span does not match original text")

	// ErrSpanNotFound is returned when a replacement targets a span that
	// is no longer present in the analysis, typically because it was
	// already replaced.
	ErrSpanNotFound = errors.New("span not found in analysis")

	// ErrEmptyText is returned when an operation requires non-empty text.
	ErrEmptyText = errors.New("text cannot be empty")
)
