package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/workflow"
	"github.com/gaganhb01/Expense-Reimbursement-System/pkg/database"
)

// DecideInput is one review action on a claim
type DecideInput struct {
	ExpenseID int64
	Outcome   models.Outcome
	Comments  string
	IPAddress string
}

// ApprovalService moves claims through the review chain
type ApprovalService struct {
	db            *database.DB
	expenses      *repository.ExpenseRepository
	users         *repository.UserRepository
	decisions     *repository.DecisionRepository
	audit         *repository.AuditRepository
	notifications *NotificationService
	logger        *zap.Logger
}

func NewApprovalService(
	db *database.DB,
	expenses *repository.ExpenseRepository,
	users *repository.UserRepository,
	decisions *repository.DecisionRepository,
	audit *repository.AuditRepository,
	notifications *NotificationService,
	logger *zap.Logger,
) *ApprovalService {
	return &ApprovalService{
		db:            db,
		expenses:      expenses,
		users:         users,
		decisions:     decisions,
		audit:         audit,
		notifications: notifications,
		logger:        logger,
	}
}

// PendingQueue returns the claims waiting on the approver's stage,
// oldest submissions first for fairness
func (s *ApprovalService) PendingQueue(approver *models.User, limit, offset int) ([]*models.Expense, error) {
	statuses := workflow.StatusesForRole(approver.Role)
	if len(statuses) == 0 {
		return nil, ErrForbidden
	}
	expenses, err := s.expenses.List(repository.ExpenseFilter{
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}
	// List orders newest first; reverse for queue fairness
	for i, j := 0, len(expenses)-1; i < j; i, j = i+1, j-1 {
		expenses[i], expenses[j] = expenses[j], expenses[i]
	}
	return expenses, nil
}

// Decide applies one approve or reject decision. The status update is
// conditional on the status the approver saw, so two concurrent
// decisions on the same claim cannot both land.
func (s *ApprovalService) Decide(approver *models.User, input DecideInput) (*models.Expense, error) {
	e, err := s.expenses.GetByID(input.ExpenseID)
	if err != nil {
		return nil, err
	}

	next, err := workflow.Authorize(e.Status, approver.ID, e.EmployeeID, approver.Role, input.Outcome)
	if err != nil {
		s.recordDenied(approver, e, input, err)
		return nil, err
	}

	if input.Outcome == models.OutcomeReject && input.Comments == "" {
		return nil, fmt.Errorf("%w: rejection requires a reason", ErrValidation)
	}

	decidedAt := time.Now()
	decision := &models.Decision{
		ExpenseID:  e.ID,
		ApproverID: approver.ID,
		Role:       approver.Role,
		Outcome:    input.Outcome,
		Comments:   input.Comments,
		DecidedAt:  decidedAt,
	}

	// Notification recipients are resolved before the transaction so
	// nothing inside it queries the pool while it holds a connection
	owner, err := s.users.GetByID(e.EmployeeID)
	if err != nil {
		return nil, err
	}
	var nextReviewers []*models.User
	if nextRole, ok := workflow.StageRole(next); ok {
		nextReviewers, err = s.notifications.RoleRecipients(nextRole)
		if err != nil {
			return nil, err
		}
	}

	batch := s.notifications.NewBatch()
	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.expenses.TransitionStatus(tx, e.ID, e.Status, next, decidedAt); err != nil {
			return err
		}
		if next == models.StatusRejected {
			if err := s.expenses.SetRejection(tx, e.ID, approver.ID, input.Comments); err != nil {
				return err
			}
		}
		if err := s.decisions.Create(tx, decision); err != nil {
			return err
		}
		if err := s.notifyOutcome(tx, batch, e, owner, approver, next, nextReviewers); err != nil {
			return err
		}
		return s.audit.Create(tx, &models.AuditEntry{
			UserID:      approver.ID,
			Action:      string(input.Outcome) + "_expense",
			EntityType:  "expense",
			EntityID:    e.ID,
			ExpenseID:   &e.ID,
			Description: fmt.Sprintf("%s %s: %s -> %s", approver.Role, input.Outcome, e.Status, next),
			Changes:     fmt.Sprintf(`{"status":{"from":%q,"to":%q}}`, e.Status, next),
			IPAddress:   input.IPAddress,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			s.logger.Warn("Concurrent decision lost the race",
				zap.Int64("expense_id", e.ID),
				zap.Int64("approver_id", approver.ID))
		}
		return nil, err
	}
	go batch.Dispatch()

	s.logger.Info("Decision recorded",
		zap.String("expense_number", e.ExpenseNumber),
		zap.String("approver_role", string(approver.Role)),
		zap.String("outcome", string(input.Outcome)),
		zap.String("new_status", string(next)))

	return s.expenses.GetByID(e.ID)
}

// MarkPaid moves an approved claim to paid. Finance only.
func (s *ApprovalService) MarkPaid(approver *models.User, expenseID int64, ipAddress string) (*models.Expense, error) {
	return s.Decide(approver, DecideInput{
		ExpenseID: expenseID,
		Outcome:   models.OutcomeMarkPaid,
		Comments:  "reimbursement paid out",
		IPAddress: ipAddress,
	})
}

// notifyOutcome tells the owner what happened and, when the chain
// continues, tells the next stage a claim is waiting
func (s *ApprovalService) notifyOutcome(tx *sql.Tx, batch *Batch, e *models.Expense, owner, approver *models.User, next models.Status, nextReviewers []*models.User) error {
	switch next {
	case models.StatusRejected:
		return batch.Notify(tx, owner, models.NotifyExpenseRejected,
			"Expense rejected",
			fmt.Sprintf("Claim %s was rejected at %s review.", e.ExpenseNumber, approver.Role),
			&e.ID)
	case models.StatusApproved:
		return batch.Notify(tx, owner, models.NotifyExpenseApproved,
			"Expense approved",
			fmt.Sprintf("Claim %s cleared the full approval chain.", e.ExpenseNumber),
			&e.ID)
	case models.StatusPaid:
		return batch.Notify(tx, owner, models.NotifyExpenseApproved,
			"Reimbursement paid",
			fmt.Sprintf("Claim %s has been paid out.", e.ExpenseNumber),
			&e.ID)
	default:
		nextRole, ok := workflow.StageRole(next)
		if !ok {
			return nil
		}
		if err := batch.Notify(tx, owner, models.NotifyExpenseSubmitted,
			"Expense progressed",
			fmt.Sprintf("Claim %s moved to %s review.", e.ExpenseNumber, nextRole),
			&e.ID); err != nil {
			return err
		}
		return batch.NotifyAll(tx, nextReviewers, models.NotifyApprovalRequired,
			"Approval required",
			fmt.Sprintf("Claim %s needs %s review.", e.ExpenseNumber, nextRole),
			&e.ID)
	}
}

// recordDenied audits refused decision attempts so circumvention
// attempts are visible to compliance
func (s *ApprovalService) recordDenied(approver *models.User, e *models.Expense, input DecideInput, cause error) {
	entry := &models.AuditEntry{
		UserID:      approver.ID,
		Action:      string(input.Outcome) + "_expense_denied",
		EntityType:  "expense",
		EntityID:    e.ID,
		ExpenseID:   &e.ID,
		Description: fmt.Sprintf("denied at status %s: %v", e.Status, cause),
		IPAddress:   input.IPAddress,
	}
	if err := s.audit.Create(nil, entry); err != nil {
		s.logger.Warn("Failed to record denied-decision audit entry", zap.Error(err))
	}
}
