// Package analysis implements the span reconciliation engine: it normalizes
// classifier-reported bias spans against the text they were produced for,
// resolves overlaps deterministically, segments the text for rendering, and
// applies accepted replacement suggestions while keeping the remaining spans
// consistent.
package analysis

import "strings"

// Category identifies the bias type a span was flagged for.
type Category string

// Bias categories reported by the classifier.
const (
	CategoryRacial        Category = "racial"
	CategoryReligious     Category = "religious"
	CategoryGender        Category = "gender"
	CategoryAge           Category = "age"
	CategoryNationality   Category = "nationality"
	CategorySexuality     Category = "sexuality"
	CategorySocioeconomic Category = "socioeconomic"
	CategoryEducational   Category = "educational"
	CategoryDisability    Category = "disability"
	CategoryPolitical     Category = "political"
	CategoryPhysical      Category = "physical"

	// CategoryOther is assigned when the classifier returns a category
	// outside the known set.
	CategoryOther Category = "other"
)

// knownCategories is the set of categories the classifier is expected to emit.
var knownCategories = map[Category]bool{
	CategoryRacial:        true,
	CategoryReligious:     true,
	CategoryGender:        true,
	CategoryAge:           true,
	CategoryNationality:   true,
	CategorySexuality:     true,
	CategorySocioeconomic: true,
	CategoryEducational:   true,
	CategoryDisability:    true,
	CategoryPolitical:     true,
	CategoryPhysical:      true,
}

// NormalizeCategory maps a raw classifier category string onto the known set.
// Unknown values fold into CategoryOther so a renamed model label never
// breaks rendering.
func NormalizeCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if knownCategories[c] {
		return c
	}
	return CategoryOther
}

// Valid reports whether the category is one the classifier is known to emit.
func (c Category) Valid() bool {
	return knownCategories[c] || c == CategoryOther
}

// Suggestion is a proposed replacement for a flagged span.
type Suggestion struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Span is a classifier-reported flagged character range. StartIndex is
// inclusive, EndIndex exclusive. SourceText records the text the span covered
// when it was produced; it goes stale once the underlying text is edited.
type Span struct {
	SourceText  string       `json:"source_text"`
	StartIndex  int          `json:"start_index"`
	EndIndex    int          `json:"end_index"`
	Category    Category     `json:"category"`
	Confidence  float64      `json:"confidence"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Length returns the number of bytes the span covers.
func (s Span) Length() int {
	return s.EndIndex - s.StartIndex
}

// overlaps reports whether the span's range intersects [start, end).
func (s Span) overlaps(start, end int) bool {
	return s.StartIndex < end && s.EndIndex > start
}

// equal reports whether two spans describe the same flagged region. Category
// and confidence participate so that two distinct findings on the same range
// are not conflated.
func (s Span) equal(other Span) bool {
	return s.StartIndex == other.StartIndex &&
		s.EndIndex == other.EndIndex &&
		s.SourceText == other.SourceText &&
		s.Category == other.Category
}

// Analysis is one classifier result: the text that was analyzed plus the
// spans flagged in it. An Analysis is never mutated in place; every edit
// produces a replacement via ApplyReplacement.
type Analysis struct {
	OriginalText string `json:"original_text"`
	Spans        []Span `json:"spans"`
}

// Segment is a contiguous slice of the original text, flagged or plain.
// The concatenation of all segment texts reconstructs the original text
// exactly; every rendering surface consumes this sequence and nothing else.
type Segment struct {
	Text    string `json:"text"`
	Flagged bool   `json:"flagged"`
	Span    *Span  `json:"span,omitempty"`
}
