package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanlambb/biaslens/internal/analysis"
	"github.com/evanlambb/biaslens/internal/logger"
)

func TestNormalizeDropsInvalidSpans(t *testing.T) {
	t.Parallel()

	text := "She is so dumb and crazy"
	n := analysis.NewNormalizer(logger.NewNoOp())

	tests := []struct {
		name string
		span analysis.Span
		kept bool
	}{
		{
			name: "valid span",
			span: analysis.Span{SourceText: "dumb", StartIndex: 10, EndIndex: 14, Category: analysis.CategoryDisability},
			kept: true,
		},
		{
			name: "negative start",
			span: analysis.Span{SourceText: "She", StartIndex: -1, EndIndex: 3},
			kept: false,
		},
		{
			name: "end past text",
			span: analysis.Span{SourceText: "crazy", StartIndex: 19, EndIndex: 99},
			kept: false,
		},
		{
			name: "empty range",
			span: analysis.Span{SourceText: "", StartIndex: 5, EndIndex: 5},
			kept: false,
		},
		{
			name: "inverted range",
			span: analysis.Span{SourceText: "dumb", StartIndex: 14, EndIndex: 10},
			kept: false,
		},
		{
			name: "stale source text",
			span: analysis.Span{SourceText: "smart", StartIndex: 10, EndIndex: 15},
			kept: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := n.Normalize(text, []analysis.Span{tt.span})
			if tt.kept {
				require.Len(t, got, 1)
				assert.Equal(t, tt.span, got[0])
				return
			}
			assert.Empty(t, got)
		})
	}
}

func TestNormalizeOrdersByStartThenLongestFirst(t *testing.T) {
	t.Parallel()

	text := "alpha beta gamma"
	n := analysis.NewNormalizer(logger.NewNoOp())

	spans := []analysis.Span{
		{SourceText: "beta", StartIndex: 6, EndIndex: 10},
		{SourceText: "alpha", StartIndex: 0, EndIndex: 5},
		{SourceText: "alpha beta", StartIndex: 0, EndIndex: 10},
	}

	got := n.Normalize(text, spans)
	require.Len(t, got, 3)
	assert.Equal(t, "alpha beta", got[0].SourceText)
	assert.Equal(t, "alpha", got[1].SourceText)
	assert.Equal(t, "beta", got[2].SourceText)
}

func TestNormalizeEmptyInput(t *testing.T) {
	t.Parallel()

	n := analysis.NewNormalizer(logger.NewNoOp())
	assert.Empty(t, n.Normalize("some text", nil))
	assert.Empty(t, n.Normalize("", []analysis.Span{
		{SourceText: "x", StartIndex: 0, EndIndex: 1},
	}))
}

func TestNormalizeCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want analysis.Category
	}{
		{"gender", analysis.CategoryGender},
		{"Racial", analysis.CategoryRacial},
		{"  political ", analysis.CategoryPolitical},
		{"made-up-label", analysis.CategoryOther},
		{"", analysis.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, analysis.NormalizeCategory(tt.raw))
		})
	}
}
