// Package domscan locates classifier-reported clause strings inside HTML
// trees the application did not author, and either highlights or removes the
// matched text without corrupting the surrounding markup. The classifier
// returns substrings, not offsets, so matching is done against each
// element's reconstructed direct text.
package domscan

import (
	"errors"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/evanlambb/biaslens/internal/logger"
)

// Mode selects what happens to matched clause text.
type Mode string

const (
	// ModeHighlight wraps matches in an inert marker element carrying
	// confidence and justification metadata.
	ModeHighlight Mode = "highlight"
	// ModeRemove deletes matched text outright. Removal is destructive
	// and is not reversed by Unhighlight.
	ModeRemove Mode = "remove"
)

// Attribute and class names written into scanned trees.
const (
	// AttrScanned marks an element as already processed.
	AttrScanned = "data-biaslens-scanned"
	// AttrConfidence carries the classifier confidence on a marker.
	AttrConfidence = "data-biaslens-confidence"
	// AttrJustification carries the classifier justification on a marker.
	AttrJustification = "data-biaslens-justification"
	// MarkClass is the class applied to highlight markers.
	MarkClass = "biaslens-flag"
	// markTag is the element used to wrap highlighted matches.
	markTag = "mark"
)

// DefaultMinTextLength is the minimum direct-text length for an element to
// be a scan candidate.
const DefaultMinTextLength = 20

// minRemainingTextLength is the smallest direct text an element may keep
// after removal before it is suppressed from layout entirely.
const minRemainingTextLength = 3

// ErrClauseNotFound is returned when a clause cannot be found verbatim in an
// element's text. The clause is skipped for that element; it never aborts
// the remaining clauses or elements.
var ErrClauseNotFound = errors.New("clause not found in element text")

// Clause is a classifier-reported flagged substring with no offsets.
type Clause struct {
	Text          string  `json:"text"`
	Confidence    float64 `json:"confidence"`
	Justification string  `json:"justification,omitempty"`
}

// Match records one applied clause match. Matches are ephemeral: they exist
// for the duration of a scan-and-apply cycle, for reporting only.
type Match struct {
	Element       *html.Node `json:"-"`
	MatchedText   string     `json:"matched_text"`
	Confidence    float64    `json:"confidence"`
	Justification string     `json:"justification,omitempty"`
}

// Candidate is a scan-eligible element together with its direct text.
type Candidate struct {
	Node  *html.Node
	Text  string
	depth int
}

// Locator finds and decorates clause matches in parsed HTML trees.
type Locator struct {
	logger        logger.Interface
	minTextLength int
}

// NewLocator creates a new Locator. minTextLength below 1 falls back to the
// default.
func NewLocator(log logger.Interface, minTextLength int) *Locator {
	if minTextLength < 1 {
		minTextLength = DefaultMinTextLength
	}
	return &Locator{logger: log, minTextLength: minTextLength}
}

// Candidates returns the scan-eligible elements of the document, deepest
// first. Deepest-first ordering lets a nested element claim its text before
// any enclosing block is scanned, which together with the scanned marker
// prevents the same text from being decorated at two tree levels.
func (l *Locator) Candidates(doc *goquery.Document) []Candidate {
	var candidates []Candidate

	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Get(0)
		if !l.eligible(node) {
			return
		}
		text := directText(node)
		if len(text) < l.minTextLength {
			return
		}
		candidates = append(candidates, Candidate{
			Node:  node,
			Text:  text,
			depth: nodeDepth(node),
		})
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].depth > candidates[j].depth
	})

	return candidates
}

// Apply matches the given clauses against one element and applies the mode's
// action to every occurrence. Longer clauses are substituted first so a short
// clause's replacement cannot corrupt the text a longer, overlapping clause
// needs to match. The element is marked scanned only after at least one
// action was actually applied. Clauses absent from the element are skipped.
func (l *Locator) Apply(node *html.Node, clauses []Clause, mode Mode) []Match {
	ordered := make([]Clause, len(clauses))
	copy(ordered, clauses)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Text) > len(ordered[j].Text)
	})

	var matches []Match
	for _, clause := range ordered {
		if clause.Text == "" {
			continue
		}
		applied, err := l.applyClause(node, clause, mode)
		if err != nil {
			l.logger.Debug("Clause not present in element, skipping",
				"clause", clause.Text,
				"error", err)
			continue
		}
		matches = append(matches, applied...)
	}

	if len(matches) > 0 {
		setAttr(node, AttrScanned, "true")
		if mode == ModeRemove {
			l.suppressIfEmpty(node)
		}
	}

	return matches
}

// ScanDocument runs a full candidate scan over the document with a fixed
// clause set, applying the mode's action everywhere. It is the offline
// counterpart of the per-element scheduler path: CLI and HTTP consumers that
// already hold the clause list use this.
func (l *Locator) ScanDocument(doc *goquery.Document, clauses []Clause, mode Mode) []Match {
	var all []Match
	for _, candidate := range l.Candidates(doc) {
		matches := l.Apply(candidate.Node, clauses, mode)
		all = append(all, matches...)
	}

	l.logger.Debug("Document scan complete",
		"clauses", len(clauses),
		"matches", len(all),
		"mode", string(mode))

	return all
}

// Unhighlight removes every highlight marker and scanned attribute from the
// document, restoring a cleanly re-scannable tree. Text deleted in removal
// mode is intentionally not resurrected.
func (l *Locator) Unhighlight(doc *goquery.Document) {
	doc.Find(markTag + "." + MarkClass).Each(func(_ int, sel *goquery.Selection) {
		unwrap(sel.Get(0))
	})

	doc.Find("[" + AttrScanned + "]").Each(func(_ int, sel *goquery.Selection) {
		removeAttr(sel.Get(0), AttrScanned)
	})
}

// suppressIfEmpty hides an element whose remaining direct text is empty or
// trivially short after removal, rather than leaving whitespace clutter in
// the layout.
func (l *Locator) suppressIfEmpty(node *html.Node) {
	remaining := strings.TrimSpace(directText(node))
	if len(remaining) >= minRemainingTextLength {
		return
	}
	hideNode(node)
	l.logger.Debug("Suppressed element left empty by removal",
		"tag", node.Data)
}
