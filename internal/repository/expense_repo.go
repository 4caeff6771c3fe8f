package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

// ErrStatusConflict signals that a status transition lost a race: the
// claim was no longer in the expected status when the update ran.
var ErrStatusConflict = errors.New("expense status changed concurrently")

// ExpenseFilter narrows list and search queries
type ExpenseFilter struct {
	EmployeeID *int64
	Statuses   []models.Status
	Category   models.Category
	DateFrom   *time.Time
	DateTo     *time.Time
	MinAmount  *float64
	MaxAmount  *float64
	Search     string // matches expense number, description, vendor
	Limit      int
	Offset     int
}

// ExpenseRepository handles expense claim database operations
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewExpenseRepository(db *sql.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{db: db, logger: logger}
}

const expenseColumns = `
	id, expense_number, employee_id, category, amount, currency, expense_date,
	description, travel_mode, travel_from, travel_to,
	bill_file_path, bill_file_name, bill_number, vendor_name,
	is_self_declaration, declaration_reason,
	analysis_present, analysis_json,
	is_within_limits, validation_errors,
	file_hash, duplicate_status, duplicate_of_id,
	status, rejection_reason, rejected_by,
	created_at, updated_at, submitted_at, approved_at, rejected_at, paid_at
`

// Create inserts a new expense claim
func (r *ExpenseRepository) Create(tx *sql.Tx, e *models.Expense) error {
	query := `
		INSERT INTO expenses (
			expense_number, employee_id, category, amount, currency, expense_date,
			description, travel_mode, travel_from, travel_to,
			bill_file_path, bill_file_name, bill_number, vendor_name,
			is_self_declaration, declaration_reason,
			analysis_present, analysis_json,
			is_within_limits, validation_errors,
			file_hash, duplicate_status, duplicate_of_id,
			status, created_at, updated_at, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt

	analysisJSON, err := marshalNullable(e.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	validationJSON, err := marshalNullable(e.ValidationErrors)
	if err != nil {
		return fmt.Errorf("failed to marshal validation errors: %w", err)
	}

	result, err := execer(r.db, tx).Exec(query,
		e.ExpenseNumber,
		e.EmployeeID,
		e.Category,
		e.Amount,
		e.Currency,
		e.ExpenseDate,
		e.Description,
		e.TravelMode,
		e.TravelFrom,
		e.TravelTo,
		e.BillFilePath,
		e.BillFileName,
		e.BillNumber,
		e.VendorName,
		e.IsSelfDeclaration,
		e.DeclarationReason,
		e.AnalysisPresent,
		analysisJSON,
		e.IsWithinLimits,
		validationJSON,
		e.FileHash,
		e.DuplicateStatus,
		e.DuplicateOfID,
		e.Status,
		e.CreatedAt,
		e.UpdatedAt,
		e.SubmittedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// GetByID fetches an expense by primary key
func (r *ExpenseRepository) GetByID(id int64) (*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`
	e, err := r.scanExpense(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// GetByNumber fetches an expense by its human-facing number
func (r *ExpenseRepository) GetByNumber(number string) (*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE expense_number = ?`
	e, err := r.scanExpense(r.db.QueryRow(query, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// List returns expenses matching the filter, newest first
func (r *ExpenseRepository) List(filter ExpenseFilter) ([]*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses`
	where, args := buildExpenseWhere(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e, err := r.scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// Count returns the number of expenses matching the filter
func (r *ExpenseRepository) Count(filter ExpenseFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM expenses`
	where, args := buildExpenseWhere(filter)
	if where != "" {
		query += " WHERE " + where
	}
	var count int64
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return count, nil
}

// TransitionStatus atomically moves an expense from one status to
// another. The conditional update makes concurrent approvals safe: the
// loser of a race sees ErrStatusConflict instead of silently double
// applying.
func (r *ExpenseRepository) TransitionStatus(tx *sql.Tx, id int64, from, to models.Status, decidedAt time.Time) error {
	query := `UPDATE expenses SET status = ?, updated_at = ?`
	args := []interface{}{to, decidedAt}

	switch to {
	case models.StatusApproved:
		query += `, approved_at = ?`
		args = append(args, decidedAt)
	case models.StatusRejected:
		query += `, rejected_at = ?`
		args = append(args, decidedAt)
	case models.StatusPaid:
		query += `, paid_at = ?`
		args = append(args, decidedAt)
	}

	query += ` WHERE id = ? AND status = ?`
	args = append(args, id, from)

	result, err := execer(r.db, tx).Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to transition expense status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// SetRejection records who rejected the claim and why
func (r *ExpenseRepository) SetRejection(tx *sql.Tx, id int64, rejectedBy int64, reason string) error {
	_, err := execer(r.db, tx).Exec(
		`UPDATE expenses SET rejection_reason = ?, rejected_by = ? WHERE id = ?`,
		reason, rejectedBy, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set rejection: %w", err)
	}
	return nil
}

// Delete removes an expense row. Status guards live in the service.
func (r *ExpenseRepository) Delete(tx *sql.Tx, id int64) error {
	result, err := execer(r.db, tx).Exec(`DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByFileHash returns the employee's most recent non-rejected
// expense carrying the same bill content hash, excluding the given
// expense. An exact hash match blocks resubmission of the same file,
// so the lookup is scoped to the employee: two people legitimately
// share a bill scan more often than one person forgets a rejection.
func (r *ExpenseRepository) FindByFileHash(employeeID int64, hash string, excludeID int64) (*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses
		WHERE employee_id = ? AND file_hash = ? AND id != ? AND status != ?
		ORDER BY created_at DESC LIMIT 1`
	e, err := r.scanExpense(r.db.QueryRow(query, employeeID, hash, excludeID, models.StatusRejected))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// FindByBillDetails returns the employee's most recent non-rejected
// expense with the same extracted bill number and vendor, optionally
// narrowed to the bill date. Catches re-scans of a bill already
// claimed, which hash differently.
func (r *ExpenseRepository) FindByBillDetails(employeeID int64, billNumber, vendorName, billDate string, excludeID int64) (*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses
		WHERE employee_id = ? AND bill_number = ? AND vendor_name = ? AND id != ? AND status != ?`
	args := []any{employeeID, billNumber, vendorName, excludeID, models.StatusRejected}
	if billDate != "" {
		query += ` AND date(expense_date) = date(?)`
		args = append(args, billDate)
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	e, err := r.scanExpense(r.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// SelfDeclarationStats returns how many self-declared claims the
// employee filed since the given time and their summed amount. Backs
// the monthly no-bill budget.
func (r *ExpenseRepository) SelfDeclarationStats(employeeID int64, since time.Time) (int64, float64, error) {
	var count int64
	var total sql.NullFloat64
	err := r.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM expenses
		 WHERE employee_id = ? AND is_self_declaration = 1 AND created_at >= ?`,
		employeeID, since,
	).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read self-declaration stats: %w", err)
	}
	return count, total.Float64, nil
}

// SummaryRow is one bucket of the aggregate report
type SummaryRow struct {
	Key         string  `json:"key"`
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// SummarizeBy aggregates expense count and amount grouped by the given
// dimension, which must be one of "status", "category" or "employee_id"
func (r *ExpenseRepository) SummarizeBy(dimension string, filter ExpenseFilter) ([]SummaryRow, error) {
	switch dimension {
	case "status", "category", "employee_id":
	default:
		return nil, fmt.Errorf("unsupported summary dimension %q", dimension)
	}

	query := fmt.Sprintf(`SELECT %s, COUNT(*), COALESCE(SUM(amount), 0) FROM expenses`, dimension)
	where, args := buildExpenseWhere(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" GROUP BY %s ORDER BY %s", dimension, dimension)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize expenses: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.Key, &row.Count, &row.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func buildExpenseWhere(filter ExpenseFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.EmployeeID != nil {
		conds = append(conds, "employee_id = ?")
		args = append(args, *filter.EmployeeID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.Statuses)), ", ")
		conds = append(conds, fmt.Sprintf("status IN (%s)", placeholders))
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.DateFrom != nil {
		conds = append(conds, "expense_date >= ?")
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conds = append(conds, "expense_date <= ?")
		args = append(args, *filter.DateTo)
	}
	if filter.MinAmount != nil {
		conds = append(conds, "amount >= ?")
		args = append(args, *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		conds = append(conds, "amount <= ?")
		args = append(args, *filter.MaxAmount)
	}
	if filter.Search != "" {
		conds = append(conds, "(expense_number LIKE ? OR description LIKE ? OR vendor_name LIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like)
	}

	return strings.Join(conds, " AND "), args
}

func (r *ExpenseRepository) scanExpense(s rowScanner) (*models.Expense, error) {
	var e models.Expense
	var analysisJSON, validationJSON sql.NullString
	var duplicateOf, rejectedBy sql.NullInt64
	var submittedAt, approvedAt, rejectedAt, paidAt sql.NullTime

	err := s.Scan(
		&e.ID,
		&e.ExpenseNumber,
		&e.EmployeeID,
		&e.Category,
		&e.Amount,
		&e.Currency,
		&e.ExpenseDate,
		&e.Description,
		&e.TravelMode,
		&e.TravelFrom,
		&e.TravelTo,
		&e.BillFilePath,
		&e.BillFileName,
		&e.BillNumber,
		&e.VendorName,
		&e.IsSelfDeclaration,
		&e.DeclarationReason,
		&e.AnalysisPresent,
		&analysisJSON,
		&e.IsWithinLimits,
		&validationJSON,
		&e.FileHash,
		&e.DuplicateStatus,
		&duplicateOf,
		&e.Status,
		&e.RejectionReason,
		&rejectedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
		&submittedAt,
		&approvedAt,
		&rejectedAt,
		&paidAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}

	if analysisJSON.Valid && analysisJSON.String != "" {
		var analysis models.BillAnalysis
		if err := json.Unmarshal([]byte(analysisJSON.String), &analysis); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
		e.Analysis = &analysis
	}
	if validationJSON.Valid && validationJSON.String != "" {
		if err := json.Unmarshal([]byte(validationJSON.String), &e.ValidationErrors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validation errors: %w", err)
		}
	}
	if duplicateOf.Valid {
		e.DuplicateOfID = &duplicateOf.Int64
	}
	if rejectedBy.Valid {
		e.RejectedBy = &rejectedBy.Int64
	}
	if submittedAt.Valid {
		e.SubmittedAt = &submittedAt.Time
	}
	if approvedAt.Valid {
		e.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		e.RejectedAt = &rejectedAt.Time
	}
	if paidAt.Valid {
		e.PaidAt = &paidAt.Time
	}
	return &e, nil
}

// marshalNullable JSON-encodes v, returning nil for nil pointers and
// empty slices so the column stays NULL
func marshalNullable(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case *models.BillAnalysis:
		if val == nil {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
