package analysis

// Resolve produces a non-overlapping span set from a normalized list.
//
// Spans are processed in the Normalizer's order while tracking the highest
// end index emitted so far. A candidate starting at or past that cursor is
// accepted unmodified. A candidate that overlaps an already-accepted span is
// resolved by highest confidence; on an exact confidence tie the longer span
// wins, and on a further tie the earlier-starting span wins. The losing span
// is discarded whole rather than truncated: truncating would silently change
// the text a reported category applies to.
//
// The output is strictly increasing by StartIndex and non-overlapping, and
// resolving an already-resolved set returns it unchanged.
func Resolve(spans []Span) []Span {
	if len(spans) == 0 {
		return []Span{}
	}

	resolved := make([]Span, 0, len(spans))

	for _, candidate := range spans {
		if len(resolved) == 0 {
			resolved = append(resolved, candidate)
			continue
		}

		last := &resolved[len(resolved)-1]
		if candidate.StartIndex >= last.EndIndex {
			resolved = append(resolved, candidate)
			continue
		}

		if wins(candidate, *last) {
			*last = candidate
		}
	}

	return resolved
}

// wins reports whether the challenger beats the incumbent under the
// confidence-first conflict policy.
func wins(challenger, incumbent Span) bool {
	if challenger.Confidence != incumbent.Confidence {
		return challenger.Confidence > incumbent.Confidence
	}
	if challenger.Length() != incumbent.Length() {
		return challenger.Length() > incumbent.Length()
	}
	return challenger.StartIndex < incumbent.StartIndex
}
