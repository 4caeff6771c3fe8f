package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

func TestAnalyzeBill_TimeoutSurfacesAsUnavailable(t *testing.T) {
	analyzer := NewOpenAIAnalyzer("test-key", "gpt-4o", 0.1, time.Nanosecond, zap.NewNop())

	_, err := analyzer.AnalyzeBill(context.Background(), [][]byte{{0xFF, 0xD8}}, models.CategoryFood, 100)
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
}

func TestParseAnalysis_PlainJSON(t *testing.T) {
	content := `{
		"is_authentic": true,
		"confidence_score": 92,
		"bill_number": "INV-4821",
		"vendor_name": "City Cabs",
		"extracted_amount": 450.0,
		"recommendation": "APPROVE",
		"reason": "Bill matches the claim"
	}`

	analysis, err := parseAnalysis(content)
	require.NoError(t, err)
	require.NotNil(t, analysis.IsAuthentic)
	assert.True(t, *analysis.IsAuthentic)
	assert.Equal(t, 92.0, analysis.ConfidenceScore)
	assert.Equal(t, "City Cabs", analysis.VendorName)
	assert.Equal(t, models.RecommendApprove, analysis.Recommendation)
}

func TestParseAnalysis_MarkdownFencedJSON(t *testing.T) {
	content := "Here is my assessment:\n```json\n{\"confidence_score\": 40, \"recommendation\": \"REVIEW\", \"red_flags\": [\"amount differs from claim\"]}\n```"

	analysis, err := parseAnalysis(content)
	require.NoError(t, err)
	assert.Equal(t, 40.0, analysis.ConfidenceScore)
	assert.Equal(t, models.RecommendReview, analysis.Recommendation)
	assert.Equal(t, []string{"amount differs from claim"}, analysis.RedFlags)
}

func TestParseAnalysis_UnknownRecommendationBecomesReview(t *testing.T) {
	analysis, err := parseAnalysis(`{"confidence_score": 70, "recommendation": "MAYBE"}`)
	require.NoError(t, err)
	assert.Equal(t, models.RecommendReview, analysis.Recommendation)
}

func TestParseAnalysis_ClampsConfidence(t *testing.T) {
	analysis, err := parseAnalysis(`{"confidence_score": 130, "recommendation": "APPROVE"}`)
	require.NoError(t, err)
	assert.Equal(t, 100.0, analysis.ConfidenceScore)

	analysis, err = parseAnalysis(`{"confidence_score": -5, "recommendation": "REJECT"}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, analysis.ConfidenceScore)
}

func TestParseAnalysis_NoJSON(t *testing.T) {
	_, err := parseAnalysis("I could not read this bill.")
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"surrounded by prose", `result: {"a": {"b": 2}} done`, `{"a": {"b": 2}}`},
		{"brace inside string", `{"a": "}"}`, `{"a": "}"}`},
		{"no object", "nothing here", ""},
		{"unterminated", `{"a": 1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.content))
		})
	}
}
