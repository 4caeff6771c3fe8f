package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

// AuditRepository stores the append-only audit trail
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Create appends an audit entry
func (r *AuditRepository) Create(tx *sql.Tx, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (
			user_id, action, entity_type, entity_id, expense_id,
			description, changes, ip_address, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	result, err := execer(r.db, tx).Exec(query,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.ExpenseID,
		entry.Description,
		entry.Changes,
		entry.IPAddress,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create audit entry", zap.Error(err))
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListByExpense returns the audit trail for one claim, oldest first
func (r *AuditRepository) ListByExpense(expenseID int64) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, user_id, action, entity_type, entity_id, expense_id,
		       description, changes, ip_address, created_at
		FROM audit_log
		WHERE expense_id = ?
		ORDER BY created_at, id
	`
	return r.list(query, expenseID)
}

// ListByUser returns the actions performed by one user, newest first
func (r *AuditRepository) ListByUser(userID int64, limit int) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, user_id, action, entity_type, entity_id, expense_id,
		       description, changes, ip_address, created_at
		FROM audit_log
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.list(query, args...)
}

func (r *AuditRepository) list(query string, args ...interface{}) ([]*models.AuditEntry, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var expenseID sql.NullInt64
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Action,
			&e.EntityType,
			&e.EntityID,
			&expenseID,
			&e.Description,
			&e.Changes,
			&e.IPAddress,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if expenseID.Valid {
			e.ExpenseID = &expenseID.Int64
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
