package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

// DecisionRepository stores approval decisions. Rows are append-only.
type DecisionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewDecisionRepository(db *sql.DB, logger *zap.Logger) *DecisionRepository {
	return &DecisionRepository{db: db, logger: logger}
}

// Create appends a decision record
func (r *DecisionRepository) Create(tx *sql.Tx, d *models.Decision) error {
	query := `
		INSERT INTO approval_decisions (
			expense_id, approver_id, role, outcome, comments, decided_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now()
	}

	result, err := execer(r.db, tx).Exec(query,
		d.ExpenseID,
		d.ApproverID,
		d.Role,
		d.Outcome,
		d.Comments,
		d.DecidedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create decision", zap.Error(err))
		return fmt.Errorf("failed to create decision: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// ListByExpense returns the decision trail for a claim in the order
// the decisions were made
func (r *DecisionRepository) ListByExpense(expenseID int64) ([]*models.Decision, error) {
	query := `
		SELECT id, expense_id, approver_id, role, outcome, comments, decided_at
		FROM approval_decisions
		WHERE expense_id = ?
		ORDER BY decided_at, id
	`

	rows, err := r.db.Query(query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*models.Decision
	for rows.Next() {
		var d models.Decision
		if err := rows.Scan(
			&d.ID,
			&d.ExpenseID,
			&d.ApproverID,
			&d.Role,
			&d.Outcome,
			&d.Comments,
			&d.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}
