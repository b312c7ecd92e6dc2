package analysis

// Segmentize converts the original text and a resolved span set into the
// ordered, gapless segment sequence every rendering surface consumes. Plain
// and flagged segments alternate as needed; concatenating their texts
// reconstructs the original text exactly, including for an empty span set
// (one plain segment) and a span covering the whole text (one flagged
// segment).
//
// Callers must pass spans that have been through Resolve; the walk assumes a
// strictly increasing, non-overlapping sequence.
func Segmentize(originalText string, resolved []Span) []Segment {
	if originalText == "" {
		return []Segment{}
	}

	segments := make([]Segment, 0, 2*len(resolved)+1)
	cursor := 0

	for i := range resolved {
		span := resolved[i]
		if span.StartIndex > cursor {
			segments = append(segments, Segment{
				Text: originalText[cursor:span.StartIndex],
			})
		}
		segments = append(segments, Segment{
			Text:    originalText[span.StartIndex:span.EndIndex],
			Flagged: true,
			Span:    &resolved[i],
		})
		cursor = span.EndIndex
	}

	if cursor < len(originalText) {
		segments = append(segments, Segment{Text: originalText[cursor:]})
	}

	return segments
}

// Segments runs the full reconciliation pipeline on an analysis: normalize,
// resolve, segmentize. This is the one shared entry point for renderers so
// no surface ever re-slices the original text with its own logic.
func (n *Normalizer) Segments(a Analysis) []Segment {
	return Segmentize(a.OriginalText, Resolve(n.Normalize(a.OriginalText, a.Spans)))
}
