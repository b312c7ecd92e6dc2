package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanlambb/biaslens/internal/analysis"
	"github.com/evanlambb/biaslens/internal/api"
	"github.com/evanlambb/biaslens/internal/domscan"
	"github.com/evanlambb/biaslens/internal/logger"
	"github.com/evanlambb/biaslens/internal/mlclient"
)

// fakeAnalyzer scripts AnalyzeSpans responses.
type fakeAnalyzer struct {
	result *analysis.Analysis
	err    error
}

func (f *fakeAnalyzer) AnalyzeSpans(_ context.Context, _ string) (*analysis.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestRouter(analyzer api.SpanAnalyzer) *gin.Engine {
	gin.SetMode(gin.TestMode)

	log := logger.NewNoOp()
	handler := api.NewHandler(log, analyzer, domscan.NewLocator(log, 5), true, 0.5)

	router := gin.New()
	api.SetupRoutes(router, handler)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeAnalyzer{})

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["enabled"])
	assert.InDelta(t, 0.5, body["threshold"], 1e-9)
}

func TestAnalyzeReturnsSegments(t *testing.T) {
	t.Parallel()

	text := "She is so dumb and crazy"
	router := newTestRouter(&fakeAnalyzer{
		result: &analysis.Analysis{
			OriginalText: text,
			Spans: []analysis.Span{
				{SourceText: "dumb", StartIndex: 10, EndIndex: 14, Category: analysis.CategoryDisability, Confidence: 0.9},
				{SourceText: "crazy", StartIndex: 19, EndIndex: 24, Category: analysis.CategoryDisability, Confidence: 0.85},
			},
		},
	})

	w := doJSON(t, router, http.MethodPost, "/api/v1/analyze", api.AnalyzeRequest{Text: text})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, text, resp.OriginalText)
	require.Len(t, resp.Segments, 4)
	assert.False(t, resp.Segments[0].Flagged)
	assert.Equal(t, "dumb", resp.Segments[1].Text)
	assert.Equal(t, "crazy", resp.Segments[3].Text)

	assert.Equal(t, 2, resp.Summary.TotalBiasInstances)
	assert.Equal(t, "Medium", resp.Summary.RiskLevel)
	assert.Equal(t, []string{"disability"}, resp.Summary.CategoriesDetected)
}

func TestAnalyzeAppliesOptions(t *testing.T) {
	t.Parallel()

	text := "dumb and foreign nonsense"
	router := newTestRouter(&fakeAnalyzer{
		result: &analysis.Analysis{
			OriginalText: text,
			Spans: []analysis.Span{
				{SourceText: "dumb", StartIndex: 0, EndIndex: 4, Category: analysis.CategoryDisability, Confidence: 0.4},
				{SourceText: "foreign", StartIndex: 9, EndIndex: 16, Category: analysis.CategoryNationality, Confidence: 0.9},
			},
		},
	})

	w := doJSON(t, router, http.MethodPost, "/api/v1/analyze", api.AnalyzeRequest{
		Text: text,
		Options: api.AnalyzeOptions{
			Sensitivity: 0.6,
			Categories:  []string{"nationality"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Spans, 1)
	assert.Equal(t, "foreign", resp.Spans[0].SourceText)
}

func TestAnalyzeRejectsEmptyText(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeAnalyzer{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/analyze", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeClassifierDown(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeAnalyzer{err: mlclient.ErrUnavailable})

	w := doJSON(t, router, http.MethodPost, "/api/v1/analyze", api.AnalyzeRequest{Text: "some text"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAnalyzeOtherErrorIs500(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeAnalyzer{err: errors.New("decode response: boom")})

	w := doJSON(t, router, http.MethodPost, "/api/v1/analyze", api.AnalyzeRequest{Text: "some text"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestReplace(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeAnalyzer{})

	spans := []analysis.Span{
		{SourceText: "dumb", StartIndex: 10, EndIndex: 14, Category: analysis.CategoryDisability, Confidence: 0.9},
		{SourceText: "crazy", StartIndex: 19, EndIndex: 24, Category: analysis.CategoryDisability, Confidence: 0.85},
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/replace", api.ReplaceRequest{
		OriginalText: "She is so dumb and crazy",
		Spans:        spans,
		Target:       spans[0],
		Suggestion:   "uninformed",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ReplaceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "She is so uninformed and crazy", resp.OriginalText)
	require.Len(t, resp.Spans, 1)
	assert.Equal(t, 25, resp.Spans[0].StartIndex)
	assert.Empty(t, resp.Invalidated)
}

func TestReplaceUnknownSpanIs404(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeAnalyzer{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/replace", api.ReplaceRequest{
		OriginalText: "nothing here",
		Spans: []analysis.Span{
			{SourceText: "nothing", StartIndex: 0, EndIndex: 7, Confidence: 0.5},
		},
		Target:     analysis.Span{SourceText: "gone", StartIndex: 0, EndIndex: 4},
		Suggestion: "something",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScanHighlights(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeAnalyzer{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/scan", api.ScanRequest{
		HTML: `<div>Hello <b>world</b> you fool</div>`,
		Clauses: []api.ScanClause{
			{Text: "world you fool", Confidence: 0.9, Justification: "insult"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "world you fool", resp.Matches[0].MatchedText)
	assert.Contains(t, resp.HTML, domscan.MarkClass)
	assert.Contains(t, resp.HTML, domscan.AttrScanned)
}

func TestScanRemoveMode(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeAnalyzer{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/scan", api.ScanRequest{
		HTML: `<p>that idea is completely idiotic in my view</p>`,
		Clauses: []api.ScanClause{
			{Text: "completely idiotic", Confidence: 0.9},
		},
		Mode: string(domscan.ModeRemove),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotContains(t, resp.HTML, "completely idiotic")
	assert.NotContains(t, resp.HTML, "<mark")
}

func TestScanRespectsMinTextLength(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeAnalyzer{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/scan", api.ScanRequest{
		HTML: `<p>short but dumb</p>`,
		Clauses: []api.ScanClause{
			{Text: "dumb", Confidence: 0.9},
		},
		MinTextLength: 50,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Matches)
}

func TestBuildSummaryRiskLevels(t *testing.T) {
	t.Parallel()

	text := "some words to measure density against here"
	span := analysis.Span{SourceText: "words", StartIndex: 5, EndIndex: 10, Category: analysis.CategoryGender}

	router := newTestRouter(&fakeAnalyzer{result: &analysis.Analysis{OriginalText: text}})

	// Zero spans is low risk.
	w := doJSON(t, router, http.MethodPost, "/api/v1/analyze", api.AnalyzeRequest{Text: text})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Low", resp.Summary.RiskLevel)
	assert.Zero(t, resp.Summary.BiasDensity)

	// Three spans is high risk.
	highRouter := newTestRouter(&fakeAnalyzer{result: &analysis.Analysis{
		OriginalText: text,
		Spans: []analysis.Span{
			span,
			{SourceText: "to", StartIndex: 11, EndIndex: 13, Category: analysis.CategoryAge},
			{SourceText: "density", StartIndex: 22, EndIndex: 29, Category: analysis.CategoryGender},
		},
	}})

	w = doJSON(t, highRouter, http.MethodPost, "/api/v1/analyze", api.AnalyzeRequest{Text: text})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "High", resp.Summary.RiskLevel)
	assert.Len(t, resp.Summary.CategoriesDetected, 2)
}
