// Package api implements the HTTP API for the bias analysis service.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evanlambb/biaslens/internal/analysis"
	"github.com/evanlambb/biaslens/internal/domscan"
	"github.com/evanlambb/biaslens/internal/logger"
	"github.com/evanlambb/biaslens/internal/mlclient"
)

// SpanAnalyzer is the classifier dependency of the analyze handler.
// Implemented by mlclient.Client; faked in tests.
type SpanAnalyzer interface {
	AnalyzeSpans(ctx context.Context, text string) (*analysis.Analysis, error)
}

// Handler holds the API handlers and their dependencies.
type Handler struct {
	logger     logger.Interface
	analyzer   SpanAnalyzer
	normalizer *analysis.Normalizer
	locator    *domscan.Locator
	enabled    bool
	threshold  float64
}

// NewHandler creates a new API handler.
func NewHandler(
	log logger.Interface,
	analyzer SpanAnalyzer,
	locator *domscan.Locator,
	enabled bool,
	threshold float64,
) *Handler {
	return &Handler{
		logger:     log,
		analyzer:   analyzer,
		normalizer: analysis.NewNormalizer(log),
		locator:    locator,
		enabled:    enabled,
		threshold:  threshold,
	}
}

// HealthCheck reports liveness and the active detection configuration.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"enabled":   h.enabled,
		"threshold": h.threshold,
	})
}

// Analyze runs a span-offset analysis: classifier call, normalization,
// overlap resolution, segmentation. The returned segment sequence is the
// single source of truth for every rendering surface.
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: analysis.ErrEmptyText.Error()})
		return
	}

	requestID := uuid.NewString()
	log := h.logger.WithRequestID(requestID)

	result, err := h.analyzer.AnalyzeSpans(c.Request.Context(), req.Text)
	if err != nil {
		log.Error("Span analysis failed", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, mlclient.ErrUnavailable) {
			status = http.StatusBadGateway
		}
		c.JSON(status, ErrorResponse{Error: "analysis failed"})
		return
	}

	spans := filterSpans(result.Spans, req.Options)
	resolved := analysis.Resolve(h.normalizer.Normalize(result.OriginalText, spans))
	segments := analysis.Segmentize(result.OriginalText, resolved)

	log.Info("Analysis complete",
		"spans_reported", len(result.Spans),
		"spans_resolved", len(resolved))

	c.JSON(http.StatusOK, AnalyzeResponse{
		RequestID:    requestID,
		OriginalText: result.OriginalText,
		Spans:        resolved,
		Segments:     segments,
		Summary:      buildSummary(result.OriginalText, resolved),
	})
}

// Replace applies one accepted suggestion and returns the updated analysis.
// A target span that is no longer present (already replaced) yields 404 and
// no mutation.
func (h *Handler) Replace(c *gin.Context) {
	var req ReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	current := analysis.Analysis{OriginalText: req.OriginalText, Spans: req.Spans}
	result, err := analysis.ApplyReplacement(current, req.Target, req.Suggestion)
	if err != nil {
		if errors.Is(err, analysis.ErrSpanNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("Replacement failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "replacement failed"})
		return
	}

	resolved := analysis.Resolve(h.normalizer.Normalize(result.Analysis.OriginalText, result.Analysis.Spans))
	segments := analysis.Segmentize(result.Analysis.OriginalText, resolved)

	c.JSON(http.StatusOK, ReplaceResponse{
		OriginalText: result.Analysis.OriginalText,
		Spans:        resolved,
		Segments:     segments,
		Invalidated:  result.Invalidated,
	})
}

// Scan locates the submitted clauses inside the submitted HTML and returns
// the decorated (or stripped) markup plus the applied matches.
func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	mode := domscan.ModeHighlight
	if req.Mode == string(domscan.ModeRemove) {
		mode = domscan.ModeRemove
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(req.HTML))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid HTML"})
		return
	}

	locator := h.locator
	if req.MinTextLength > 0 {
		locator = domscan.NewLocator(h.logger, req.MinTextLength)
	}

	clauses := make([]domscan.Clause, 0, len(req.Clauses))
	for _, clause := range req.Clauses {
		clauses = append(clauses, domscan.Clause{
			Text:          clause.Text,
			Confidence:    clause.Confidence,
			Justification: clause.Justification,
		})
	}

	matches := locator.ScanDocument(doc, clauses, mode)

	rendered, err := doc.Html()
	if err != nil {
		h.logger.Error("Failed to render scanned document", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "render failed"})
		return
	}

	out := make([]ScanMatch, 0, len(matches))
	for _, match := range matches {
		out = append(out, ScanMatch{
			MatchedText:   match.MatchedText,
			Confidence:    match.Confidence,
			Justification: match.Justification,
		})
	}

	c.JSON(http.StatusOK, ScanResponse{HTML: rendered, Matches: out})
}

// filterSpans applies the request options: spans under the sensitivity or
// outside the requested categories are dropped.
func filterSpans(spans []analysis.Span, opts AnalyzeOptions) []analysis.Span {
	if opts.Sensitivity <= 0 && len(opts.Categories) == 0 {
		return spans
	}

	allowed := make(map[analysis.Category]bool, len(opts.Categories))
	for _, category := range opts.Categories {
		allowed[analysis.NormalizeCategory(category)] = true
	}

	filtered := make([]analysis.Span, 0, len(spans))
	for _, span := range spans {
		if span.Confidence < opts.Sensitivity {
			continue
		}
		if len(allowed) > 0 && !allowed[span.Category] {
			continue
		}
		filtered = append(filtered, span)
	}
	return filtered
}
