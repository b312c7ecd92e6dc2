package domscan

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// textRun maps one text node onto its range in the element's reconstructed
// direct text.
type textRun struct {
	node  *html.Node
	start int
	end   int
}

// wsPattern matches runs of repeated whitespace left behind by removal.
var wsPattern = regexp.MustCompile(`\s{2,}`)

// directText returns the element's own text plus the text of inline-level
// descendants. Block-level descendants are excluded; they are scanned as
// candidates in their own right.
func directText(node *html.Node) string {
	_, text := collectRuns(node)
	return text
}

// collectRuns gathers the text nodes that make up an element's direct text,
// in document order, with their offsets in the concatenation. Text inside
// block-level descendants, already-scanned descendants, and our own
// highlight markers is excluded, so text claimed once is never claimed
// again.
func collectRuns(root *html.Node) ([]textRun, string) {
	var runs []textRun
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				start := b.Len()
				b.WriteString(c.Data)
				runs = append(runs, textRun{node: c, start: start, end: b.Len()})
			case html.ElementNode:
				if includeInline(c) {
					walk(c)
				}
			}
		}
	}
	walk(root)

	return runs, b.String()
}

// includeInline reports whether an inline child's text belongs to the
// enclosing element's direct text.
func includeInline(n *html.Node) bool {
	if !inlineTags[n.Data] {
		return false
	}
	if hasAttr(n, AttrScanned) {
		return false
	}
	if n.Data == markTag && hasAttr(n, AttrConfidence) {
		return false
	}
	return true
}

// clausePattern compiles a clause into a case-insensitive literal pattern.
// The clause text is always escaped; user-facing strings are never compiled
// as live patterns.
func clausePattern(text string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)` + regexp.QuoteMeta(text))
}

// applyClause finds every occurrence of one clause in the element's direct
// text and applies the mode's action. Runs are rebuilt after each
// application: highlighting moves matched text into a marker that is
// excluded from subsequent passes, and removal shrinks the text, so the
// loop always terminates.
func (l *Locator) applyClause(node *html.Node, clause Clause, mode Mode) ([]Match, error) {
	pattern, err := clausePattern(clause.Text)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for {
		runs, text := collectRuns(node)
		loc := pattern.FindStringIndex(text)
		if loc == nil {
			break
		}

		matched := text[loc[0]:loc[1]]
		if mode == ModeRemove {
			removeRange(runs, loc[0], loc[1])
			collapseWhitespace(node)
		} else {
			wrapRange(runs, loc[0], loc[1], clause)
		}

		matches = append(matches, Match{
			Element:       node,
			MatchedText:   matched,
			Confidence:    clause.Confidence,
			Justification: clause.Justification,
		})
	}

	if len(matches) == 0 {
		return nil, ErrClauseNotFound
	}
	return matches, nil
}

// wrapRange wraps the [lo, hi) range of the direct text in highlight
// markers. A match that spans several text nodes gets one marker per node
// portion, which keeps the existing inline structure intact.
func wrapRange(runs []textRun, lo, hi int, clause Clause) {
	for _, run := range runs {
		if run.end <= lo || run.start >= hi {
			continue
		}
		localLo := max(lo-run.start, 0)
		localHi := min(hi-run.start, run.end-run.start)
		wrapTextNode(run.node, localLo, localHi, clause)
	}
}

// wrapTextNode splits a text node at the match boundaries and wraps the
// matched middle in a marker element.
func wrapTextNode(tn *html.Node, lo, hi int, clause Clause) {
	parent := tn.Parent
	data := tn.Data

	marker := &html.Node{
		Type: html.ElementNode,
		Data: markTag,
		Attr: []html.Attribute{
			{Key: "class", Val: MarkClass},
			{Key: AttrConfidence, Val: strconv.FormatFloat(clause.Confidence, 'f', 2, 64)},
			{Key: AttrJustification, Val: clause.Justification},
		},
	}
	marker.AppendChild(&html.Node{Type: html.TextNode, Data: data[lo:hi]})

	parent.InsertBefore(marker, tn.NextSibling)
	if after := data[hi:]; after != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: after}, marker.NextSibling)
	}

	tn.Data = data[:lo]
	if tn.Data == "" {
		parent.RemoveChild(tn)
	}
}

// removeRange deletes the [lo, hi) range of the direct text from the
// affected text nodes. Nodes emptied entirely are detached.
func removeRange(runs []textRun, lo, hi int) {
	for _, run := range runs {
		if run.end <= lo || run.start >= hi {
			continue
		}
		localLo := max(lo-run.start, 0)
		localHi := min(hi-run.start, run.end-run.start)

		data := run.node.Data
		run.node.Data = data[:localLo] + data[localHi:]
		if run.node.Data == "" && run.node.Parent != nil {
			run.node.Parent.RemoveChild(run.node)
		}
	}
}

// collapseWhitespace squeezes repeated whitespace left behind by removal,
// including doubling across adjacent text nodes.
func collapseWhitespace(root *html.Node) {
	runs, _ := collectRuns(root)
	prevEndsInSpace := false

	for _, run := range runs {
		data := wsPattern.ReplaceAllString(run.node.Data, " ")
		if prevEndsInSpace {
			data = strings.TrimPrefix(data, " ")
		}
		if data == "" {
			if run.node.Parent != nil {
				run.node.Parent.RemoveChild(run.node)
			}
			continue
		}
		run.node.Data = data
		prevEndsInSpace = strings.HasSuffix(data, " ")
	}
}
