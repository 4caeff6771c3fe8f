package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

// OpenAIAnalyzer implements BillAnalyzer using GPT vision models
type OpenAIAnalyzer struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

func NewOpenAIAnalyzer(apiKey, model string, temperature float32, timeout time.Duration, logger *zap.Logger) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// AnalyzeBill sends the bill pages to the vision model and parses the
// structured verdict. All backend failures surface as
// ErrAnalysisUnavailable so callers can degrade instead of blocking
// the claim.
func (a *OpenAIAnalyzer) AnalyzeBill(
	ctx context.Context,
	pages [][]byte,
	category models.Category,
	claimedAmount float64,
) (*models.BillAnalysis, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no bill pages to analyze", ErrAnalysisUnavailable)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	a.logger.Info("Starting bill analysis",
		zap.String("category", string(category)),
		zap.Float64("claimed_amount", claimedAmount),
		zap.Int("page_count", len(pages)))

	contentParts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: buildAnalysisPrompt(category, claimedAmount),
		},
	}
	for _, page := range pages {
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(page)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   2048,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert bill auditor for an expense reimbursement system. You read receipts and invoices with high accuracy and flag signs of tampering or mismatch. Always respond with valid JSON.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		a.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from vision model", ErrAnalysisUnavailable)
	}

	content := resp.Choices[0].Message.Content
	analysis, err := parseAnalysis(content)
	if err != nil {
		a.logger.Error("Failed to parse analysis response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	a.logger.Info("Bill analysis completed",
		zap.Float64("confidence", analysis.ConfidenceScore),
		zap.String("recommendation", string(analysis.Recommendation)))

	return analysis, nil
}

// parseAnalysis unmarshals the model output, falling back to a brace
// scan when the model wraps the JSON in markdown fences or prose
func parseAnalysis(content string) (*models.BillAnalysis, error) {
	var analysis models.BillAnalysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		jsonStr := extractJSON(content)
		if jsonStr == "" {
			return nil, fmt.Errorf("no JSON object in response: %w", err)
		}
		if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	if !analysis.Recommendation.IsValid() {
		analysis.Recommendation = models.RecommendReview
	}
	if analysis.ConfidenceScore < 0 {
		analysis.ConfidenceScore = 0
	}
	if analysis.ConfidenceScore > 100 {
		analysis.ConfidenceScore = 100
	}
	return &analysis, nil
}

func buildAnalysisPrompt(category models.Category, claimedAmount float64) string {
	return fmt.Sprintf(`Carefully examine this bill/receipt image for an expense claim.

Claimed expense category: %s
Claimed amount: %.2f

Extract all visible information and assess the bill:

BILL DETAILS:
- bill_number: the bill or invoice number
- bill_date: date on the bill in YYYY-MM-DD format
- vendor_name: the merchant or vendor name
- extracted_amount: the total payable amount on the bill
- has_gst: whether a GST number is printed
- gst_number: the GST number if visible
- payment_method: cash, card, UPI, etc. if visible
- travel_mode: for travel bills only (bus, train, cab, flight_economy, flight_business)
- travel_route: for travel bills only, e.g. "Mumbai to Pune"

ASSESSMENT:
- is_authentic: does the bill look like a genuine, unaltered document
- confidence_score: 0-100, your confidence in this assessment
- red_flags: list of suspicious signs (edited text, mismatched fonts, amount differs from claim, wrong category)
- missing_elements: list of expected elements that are absent (date, vendor, amount, bill number)
- recommendation: "APPROVE", "REJECT", or "REVIEW"
- reason: one sentence explaining the recommendation
- summary: two or three sentences describing the bill

Return a JSON object with this exact structure:
{
  "is_authentic": boolean,
  "confidence_score": number,
  "bill_number": "string",
  "bill_date": "YYYY-MM-DD",
  "vendor_name": "string",
  "extracted_amount": number,
  "has_gst": boolean,
  "gst_number": "string",
  "travel_mode": "string",
  "travel_route": "string",
  "payment_method": "string",
  "red_flags": ["string"],
  "missing_elements": ["string"],
  "recommendation": "APPROVE|REJECT|REVIEW",
  "reason": "string",
  "summary": "string"
}

IMPORTANT:
- Extract EXACTLY what you see. Do not guess or make up values.
- For amounts, use numbers without currency symbols.
- If a field is not visible or unclear, use empty string "" or 0.`,
		category, claimedAmount)
}

// extractJSON pulls the first balanced JSON object out of free text
func extractJSON(content string) string {
	start := -1
	for i := 0; i < len(content); i++ {
		if content[i] == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}
