package analysis

import (
	"sort"

	"github.com/evanlambb/biaslens/internal/logger"
)

// Normalizer cleans raw classifier span lists before overlap resolution.
type Normalizer struct {
	logger logger.Interface
}

// NewNormalizer creates a new Normalizer.
func NewNormalizer(log logger.Interface) *Normalizer {
	return &Normalizer{logger: log}
}

// Normalize drops spans that are out of bounds or whose recorded source text
// no longer matches the original text at their range, then orders the
// survivors by StartIndex ascending with ties broken by EndIndex descending
// (longer span first). Stale spans are logged and discarded, never fatal.
func (n *Normalizer) Normalize(originalText string, spans []Span) []Span {
	cleaned := make([]Span, 0, len(spans))

	for _, span := range spans {
		if err := validateSpan(originalText, span); err != nil {
			n.logger.Warn("Discarding stale span",
				"start", span.StartIndex,
				"end", span.EndIndex,
				"source_text", span.SourceText,
				"category", span.Category,
				"error", err)
			continue
		}
		cleaned = append(cleaned, span)
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		if cleaned[i].StartIndex != cleaned[j].StartIndex {
			return cleaned[i].StartIndex < cleaned[j].StartIndex
		}
		return cleaned[i].EndIndex > cleaned[j].EndIndex
	})

	return cleaned
}

// validateSpan checks that the span's range is in bounds and its source text
// still matches the original text at that range.
func validateSpan(originalText string, span Span) error {
	if span.StartIndex < 0 || span.EndIndex > len(originalText) || span.StartIndex >= span.EndIndex {
		return ErrSpanMismatch
	}
	if originalText[span.StartIndex:span.EndIndex] != span.SourceText {
		return ErrSpanMismatch
	}
	return nil
}
