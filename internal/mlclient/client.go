// Package mlclient is the HTTP client for the external bias classifier. The
// classifier exposes two response shapes: a span-offset analysis used by the
// editing surfaces and a clause-string detection used when only rendered
// text is available. Both are mapped onto the internal models here so no
// other package ever sees the wire shapes.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/evanlambb/biaslens/internal/analysis"
	"github.com/evanlambb/biaslens/internal/domscan"
	"github.com/evanlambb/biaslens/internal/logger"
)

// ErrUnavailable indicates the classifier service is unreachable.
var ErrUnavailable = errors.New("classifier service unavailable")

// DefaultTimeout bounds a single classifier request.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client for the bias classifier service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Interface
}

// NewClient creates a new classifier client.
func NewClient(baseURL string, timeout time.Duration, log logger.Interface) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// analyzeRequest is the request body for both classifier endpoints.
type analyzeRequest struct {
	Text                string  `json:"text"`
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`
}

// spanDTO is one flagged span on the wire.
type spanDTO struct {
	Text              string  `json:"text"`
	Category          string  `json:"category"`
	Confidence        float64 `json:"confidence"`
	Explanation       string  `json:"explanation"`
	SuggestedRevision string  `json:"suggested_revision"`
	StartIndex        int     `json:"start_index"`
	EndIndex          int     `json:"end_index"`
}

// spanAnalysisResponse is the span-offset response shape.
type spanAnalysisResponse struct {
	OriginalText string         `json:"original_text"`
	BiasSpans    []spanDTO      `json:"bias_spans"`
	Summary      map[string]any `json:"summary"`
}

// biasDetectionDTO is one detected bias type within a clause.
type biasDetectionDTO struct {
	BiasType   string  `json:"bias_type"`
	Confidence float64 `json:"confidence"`
}

// clauseDTO is one flagged clause on the wire.
type clauseDTO struct {
	Text           string             `json:"text"`
	DetectedBiases []biasDetectionDTO `json:"detected_biases"`
	Justification  string             `json:"justification"`
}

// clauseResponse is the clause-string response shape.
type clauseResponse struct {
	BiasDetected  bool           `json:"bias_detected"`
	BiasedClauses []clauseDTO    `json:"biased_clauses"`
	Summary       map[string]any `json:"summary"`
}

// AnalyzeSpans requests a span-offset analysis for the text and maps it onto
// the internal span model. Spans whose reported offsets do not line up with
// the text are re-located by case-insensitive search, matching the
// classifier's own fallback; spans that cannot be located at all are dropped
// with a warning.
func (c *Client) AnalyzeSpans(ctx context.Context, text string) (*analysis.Analysis, error) {
	var resp spanAnalysisResponse
	if err := c.postJSON(ctx, "/analyze", analyzeRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("analyze spans: %w", err)
	}

	result := &analysis.Analysis{
		OriginalText: text,
		Spans:        make([]analysis.Span, 0, len(resp.BiasSpans)),
	}

	for _, dto := range resp.BiasSpans {
		span, ok := c.toSpan(text, dto)
		if !ok {
			continue
		}
		result.Spans = append(result.Spans, span)
	}

	return result, nil
}

// DetectClauses requests clause-string detection for the text. Each clause
// carries the highest confidence among its detected bias types, which is
// what the decoration layer thresholds against.
func (c *Client) DetectClauses(ctx context.Context, text string, threshold float64) ([]domscan.Clause, error) {
	req := analyzeRequest{Text: text, ConfidenceThreshold: threshold}

	var resp clauseResponse
	if err := c.postJSON(ctx, "/analyze-simple", req, &resp); err != nil {
		return nil, fmt.Errorf("detect clauses: %w", err)
	}

	clauses := make([]domscan.Clause, 0, len(resp.BiasedClauses))
	for _, dto := range resp.BiasedClauses {
		confidence := 0.0
		for _, detection := range dto.DetectedBiases {
			if detection.Confidence > confidence {
				confidence = detection.Confidence
			}
		}
		clauses = append(clauses, domscan.Clause{
			Text:          dto.Text,
			Confidence:    confidence,
			Justification: dto.Justification,
		})
	}

	return clauses, nil
}

// Health checks whether the classifier service is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// toSpan converts a wire span onto the internal model, recovering offsets
// when the reported ones are stale.
func (c *Client) toSpan(text string, dto spanDTO) (analysis.Span, bool) {
	start, end := dto.StartIndex, dto.EndIndex

	if !offsetsMatch(text, dto.Text, start, end) {
		loc := locateFold(text, dto.Text)
		if loc < 0 {
			c.logger.Warn("Could not locate classifier span in text, dropping",
				"span_text", dto.Text,
				"category", dto.Category)
			return analysis.Span{}, false
		}
		start, end = loc, loc+len(dto.Text)
	}

	span := analysis.Span{
		SourceText: text[start:end],
		StartIndex: start,
		EndIndex:   end,
		Category:   analysis.NormalizeCategory(dto.Category),
		Confidence: dto.Confidence,
	}
	if dto.SuggestedRevision != "" {
		span.Suggestions = []analysis.Suggestion{{
			Text:       dto.SuggestedRevision,
			Confidence: dto.Confidence,
			Reason:     dto.Explanation,
		}}
	}
	return span, true
}

// offsetsMatch reports whether the reported range is in bounds and covers
// the reported text.
func offsetsMatch(text, spanText string, start, end int) bool {
	if start < 0 || end > len(text) || start >= end {
		return false
	}
	return text[start:end] == spanText
}

// locateFold finds spanText in text case-insensitively, as a literal.
// Returns -1 when absent.
func locateFold(text, spanText string) int {
	if spanText == "" {
		return -1
	}
	pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(spanText))
	if err != nil {
		return -1
	}
	loc := pattern.FindStringIndex(text)
	if loc == nil || loc[1]-loc[0] != len(spanText) {
		return -1
	}
	return loc[0]
}

// postJSON sends a JSON request and decodes a JSON response. Transport
// failures surface as ErrUnavailable so callers can distinguish an
// unreachable classifier from a bad response.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	return nil
}
