// Package ai analyzes uploaded bill images with a vision model and
// returns a structured assessment for approvers.
package ai

import (
	"context"
	"errors"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

// ErrAnalysisUnavailable signals that the vision backend could not
// produce an analysis. Claims still proceed through the approval chain
// without one.
var ErrAnalysisUnavailable = errors.New("bill analysis unavailable")

// BillAnalyzer produces a structured analysis of a bill from its
// rendered page images
type BillAnalyzer interface {
	AnalyzeBill(ctx context.Context, pages [][]byte, category models.Category, claimedAmount float64) (*models.BillAnalysis, error)
}
