package api

import "github.com/evanlambb/biaslens/internal/analysis"

// AnalyzeRequest is the request body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Text    string         `json:"text" binding:"required"`
	Options AnalyzeOptions `json:"options"`
}

// AnalyzeOptions narrows an analysis: spans below the sensitivity or outside
// the requested categories are dropped before segmentation.
type AnalyzeOptions struct {
	Sensitivity float64  `json:"sensitivity"`
	Categories  []string `json:"categories"`
}

// AnalyzeResponse is the response body for POST /api/v1/analyze. Segments is
// the one rendering contract: every consumer draws this sequence and never
// re-slices the original text itself.
type AnalyzeResponse struct {
	RequestID    string             `json:"request_id"`
	OriginalText string             `json:"original_text"`
	Spans        []analysis.Span    `json:"spans"`
	Segments     []analysis.Segment `json:"segments"`
	Summary      Summary            `json:"summary"`
}

// ReplaceRequest is the request body for POST /api/v1/replace.
type ReplaceRequest struct {
	OriginalText string          `json:"original_text" binding:"required"`
	Spans        []analysis.Span `json:"spans" binding:"required"`
	Target       analysis.Span   `json:"target" binding:"required"`
	Suggestion   string          `json:"suggestion"`
}

// ReplaceResponse is the response body for POST /api/v1/replace.
// Invalidated lists spans destroyed by the replacement so callers can
// surface them instead of having them silently vanish.
type ReplaceResponse struct {
	OriginalText string             `json:"original_text"`
	Spans        []analysis.Span    `json:"spans"`
	Segments     []analysis.Segment `json:"segments"`
	Invalidated  []analysis.Span    `json:"invalidated,omitempty"`
}

// ScanRequest is the request body for POST /api/v1/scan.
type ScanRequest struct {
	HTML          string       `json:"html" binding:"required"`
	Clauses       []ScanClause `json:"clauses" binding:"required"`
	Mode          string       `json:"mode"`
	MinTextLength int          `json:"min_text_length"`
}

// ScanClause is one clause to locate in the submitted HTML.
type ScanClause struct {
	Text          string  `json:"text" binding:"required"`
	Confidence    float64 `json:"confidence"`
	Justification string  `json:"justification"`
}

// ScanMatch reports one applied match.
type ScanMatch struct {
	MatchedText   string  `json:"matched_text"`
	Confidence    float64 `json:"confidence"`
	Justification string  `json:"justification,omitempty"`
}

// ScanResponse is the response body for POST /api/v1/scan.
type ScanResponse struct {
	HTML    string      `json:"html"`
	Matches []ScanMatch `json:"matches"`
}

// Summary aggregates an analysis for display.
type Summary struct {
	TotalBiasInstances int      `json:"total_bias_instances"`
	CategoriesDetected []string `json:"categories_detected"`
	OverallAssessment  string   `json:"overall_assessment"`
	RiskLevel          string   `json:"risk_level"`
	TextLength         int      `json:"text_length"`
	BiasDensity        float64  `json:"bias_density"`
}

// ErrorResponse is the error payload returned by all handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Risk level thresholds: zero instances is low risk, up to two is medium.
const mediumRiskMaxInstances = 2

// buildSummary computes display aggregates from a resolved span set, the way
// the classifier summarizes its own results.
func buildSummary(text string, resolved []analysis.Span) Summary {
	seen := make(map[analysis.Category]bool)
	categories := make([]string, 0)
	for _, span := range resolved {
		if !seen[span.Category] {
			seen[span.Category] = true
			categories = append(categories, string(span.Category))
		}
	}

	total := len(resolved)
	risk := "High"
	assessment := "Multiple bias instances detected"
	switch {
	case total == 0:
		risk = "Low"
		assessment = "No bias detected"
	case total <= mediumRiskMaxInstances:
		risk = "Medium"
		assessment = "Minor bias detected"
	}

	words := wordCount(text)
	density := 0.0
	if words > 0 {
		density = float64(total) / float64(words)
	}

	return Summary{
		TotalBiasInstances: total,
		CategoriesDetected: categories,
		OverallAssessment:  assessment,
		RiskLevel:          risk,
		TextLength:         len(text),
		BiasDensity:        density,
	}
}

// wordCount counts whitespace-separated words.
func wordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
