package service

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
)

// SearchResult is one page of a search query
type SearchResult struct {
	Expenses []*models.Expense `json:"expenses"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// ReportService answers search, summary and export queries over claims
type ReportService struct {
	expenses *repository.ExpenseRepository
	users    *repository.UserRepository
	logger   *zap.Logger
}

func NewReportService(
	expenses *repository.ExpenseRepository,
	users *repository.UserRepository,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{expenses: expenses, users: users, logger: logger}
}

// Search runs a filtered, paginated claim search. Employees are scoped
// to their own claims; approvers search across all of them.
func (s *ReportService) Search(viewer *models.User, filter repository.ExpenseFilter) (*SearchResult, error) {
	if !viewer.Role.IsApprover() {
		filter.EmployeeID = &viewer.ID
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	total, err := s.expenses.Count(filter)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.List(filter)
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Expenses: expenses,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

// Summary aggregates claim count and amount by the given dimension
// ("status", "category" or "employee_id"). Approvers only.
func (s *ReportService) Summary(viewer *models.User, dimension string, filter repository.ExpenseFilter) ([]repository.SummaryRow, error) {
	if !viewer.Role.IsApprover() {
		return nil, ErrForbidden
	}
	rows, err := s.expenses.SummarizeBy(dimension, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return rows, nil
}

var exportHeaders = []string{
	"Expense Number", "Employee", "Category", "Amount", "Currency",
	"Expense Date", "Status", "Within Limits", "Duplicate Check",
	"AI Recommendation", "Submitted At",
}

// ExportExcel writes the claims matching the filter into a spreadsheet.
// Approvers only.
func (s *ReportService) ExportExcel(viewer *models.User, filter repository.ExpenseFilter) ([]byte, error) {
	if !viewer.Role.IsApprover() {
		return nil, ErrForbidden
	}

	expenses, err := s.expenses.List(filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Expenses"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	// Resolve employee names once per export
	names := map[int64]string{}
	for row, e := range expenses {
		name, ok := names[e.EmployeeID]
		if !ok {
			if user, err := s.users.GetByID(e.EmployeeID); err == nil {
				name = user.FullName
			} else {
				name = fmt.Sprintf("user %d", e.EmployeeID)
			}
			names[e.EmployeeID] = name
		}

		recommendation := ""
		if e.Analysis != nil {
			recommendation = string(e.Analysis.Recommendation)
		}
		submittedAt := ""
		if e.SubmittedAt != nil {
			submittedAt = e.SubmittedAt.Format("2006-01-02 15:04")
		}

		values := []interface{}{
			e.ExpenseNumber,
			name,
			string(e.Category),
			e.Amount,
			e.Currency,
			e.ExpenseDate.Format("2006-01-02"),
			string(e.Status),
			e.IsWithinLimits,
			string(e.DuplicateStatus),
			recommendation,
			submittedAt,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "K", 18); err != nil {
		return nil, fmt.Errorf("failed to set column widths: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize spreadsheet: %w", err)
	}

	s.logger.Info("Expense export generated",
		zap.Int("rows", len(expenses)),
		zap.Int64("viewer_id", viewer.ID))

	return buf.Bytes(), nil
}
