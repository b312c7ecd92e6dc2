package analysis

import "strings"

// ReplacementResult is the outcome of applying one accepted suggestion.
// Invalidated lists spans that overlapped the replaced range and were
// discarded because their underlying text no longer exists verbatim; they
// are surfaced here so callers can report them instead of having spans
// silently vanish.
type ReplacementResult struct {
	Analysis    Analysis `json:"analysis"`
	Invalidated []Span   `json:"invalidated,omitempty"`
}

// ApplyReplacement splices a chosen suggestion into the analysis text at the
// target span's range and returns a new Analysis with every other span's
// offsets recomputed. The input analysis is left untouched.
//
// Spans entirely before the target keep their offsets. Spans at or after the
// target's end shift by the length delta of the replacement. Spans that
// overlap the replaced range are invalidated. The target itself is removed,
// so applying the same replacement twice fails with ErrSpanNotFound rather
// than mutating the text a second time.
func ApplyReplacement(a Analysis, target Span, suggestionText string) (*ReplacementResult, error) {
	idx := findSpan(a.Spans, target)
	if idx < 0 {
		return nil, ErrSpanNotFound
	}
	target = a.Spans[idx]

	var b strings.Builder
	b.Grow(len(a.OriginalText) + len(suggestionText) - target.Length())
	b.WriteString(a.OriginalText[:target.StartIndex])
	b.WriteString(suggestionText)
	b.WriteString(a.OriginalText[target.EndIndex:])
	newText := b.String()

	delta := len(suggestionText) - len(target.SourceText)

	result := &ReplacementResult{
		Analysis: Analysis{
			OriginalText: newText,
			Spans:        make([]Span, 0, len(a.Spans)-1),
		},
	}

	for i, span := range a.Spans {
		if i == idx {
			continue
		}
		switch {
		case span.EndIndex <= target.StartIndex:
			result.Analysis.Spans = append(result.Analysis.Spans, span)
		case span.StartIndex >= target.EndIndex:
			span.StartIndex += delta
			span.EndIndex += delta
			result.Analysis.Spans = append(result.Analysis.Spans, span)
		default:
			result.Invalidated = append(result.Invalidated, span)
		}
	}

	return result, nil
}

// findSpan returns the index of the span in the set, or -1 if absent.
func findSpan(spans []Span, target Span) int {
	for i, span := range spans {
		if span.equal(target) {
			return i
		}
	}
	return -1
}
