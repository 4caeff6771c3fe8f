package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/ai"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/bill"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/policy"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/storage"
	"github.com/gaganhb01/Expense-Reimbursement-System/pkg/database"
	"github.com/gaganhb01/Expense-Reimbursement-System/pkg/utils"
)

// SubmitExpenseInput carries the fields of a new claim
type SubmitExpenseInput struct {
	Category    models.Category
	Amount      float64
	Currency    string
	ExpenseDate time.Time
	Description string

	TravelMode models.TravelMode
	TravelFrom string
	TravelTo   string

	IsSelfDeclaration bool
	DeclarationReason string

	BillFileName string
	BillContent  []byte

	IPAddress string
}

// ExpenseService implements the claim lifecycle from submission to
// deletion
type ExpenseService struct {
	db            *database.DB
	expenses      *repository.ExpenseRepository
	users         *repository.UserRepository
	decisions     *repository.DecisionRepository
	audit         *repository.AuditRepository
	notifications *NotificationService
	bills         *storage.BillStore
	renderer      *bill.Renderer
	analyzer      ai.BillAnalyzer
	logger        *zap.Logger
}

func NewExpenseService(
	db *database.DB,
	expenses *repository.ExpenseRepository,
	users *repository.UserRepository,
	decisions *repository.DecisionRepository,
	audit *repository.AuditRepository,
	notifications *NotificationService,
	bills *storage.BillStore,
	renderer *bill.Renderer,
	analyzer ai.BillAnalyzer,
	logger *zap.Logger,
) *ExpenseService {
	return &ExpenseService{
		db:            db,
		expenses:      expenses,
		users:         users,
		decisions:     decisions,
		audit:         audit,
		notifications: notifications,
		bills:         bills,
		renderer:      renderer,
		analyzer:      analyzer,
		logger:        logger,
	}
}

// Submit runs the full submission pipeline: input validation, policy
// check, bill storage, AI analysis and duplicate detection, then
// creates the claim and notifies the manager stage. An exact resubmission
// of a bill is rejected outright; limit violations and softer duplicate
// suspicions only flag the claim, the approval chain decides.
func (s *ExpenseService) Submit(ctx context.Context, owner *models.User, input SubmitExpenseInput) (*models.Expense, error) {
	if err := s.validateSubmission(owner, input); err != nil {
		return nil, err
	}

	now := time.Now()
	e := &models.Expense{
		EmployeeID:        owner.ID,
		Category:          input.Category,
		Amount:            input.Amount,
		Currency:          input.Currency,
		ExpenseDate:       input.ExpenseDate,
		Description:       utils.SanitizeString(input.Description),
		TravelMode:        input.TravelMode,
		TravelFrom:        utils.SanitizeString(input.TravelFrom),
		TravelTo:          utils.SanitizeString(input.TravelTo),
		IsSelfDeclaration: input.IsSelfDeclaration,
		DeclarationReason: utils.SanitizeString(input.DeclarationReason),
		Status:            models.StatusSubmitted,
		DuplicateStatus:   models.DuplicateNotChecked,
		SubmittedAt:       &now,
	}
	if e.Currency == "" {
		e.Currency = "INR"
	}

	violations := policy.Check(owner.Grade, input.Category, input.Amount, input.TravelMode, input.IsSelfDeclaration)
	e.IsWithinLimits = len(violations) == 0
	e.ValidationErrors = violations

	if input.IsSelfDeclaration {
		e.Analysis = syntheticDeclarationAnalysis(input)
		e.AnalysisPresent = true
	} else {
		if err := s.attachBill(ctx, owner, input, e); err != nil {
			if e.BillFilePath != "" {
				_ = s.bills.Remove(e.BillFilePath)
			}
			return nil, err
		}
	}

	e.ExpenseNumber = expenseNumber(now)

	// Role recipients are resolved up front: the transaction below may
	// hold the pool's only connection, so nothing inside it can query
	// the pool.
	managers, err := s.notifications.RoleRecipients(models.RoleManager)
	if err != nil {
		return nil, err
	}

	batch := s.notifications.NewBatch()
	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.expenses.Create(tx, e); err != nil {
			return err
		}

		if err := batch.Notify(tx, owner, models.NotifyExpenseSubmitted,
			"Expense submitted",
			fmt.Sprintf("Your claim %s for %.2f %s is awaiting manager review.", e.ExpenseNumber, e.Amount, e.Currency),
			&e.ID); err != nil {
			return err
		}
		if err := batch.NotifyAll(tx, managers, models.NotifyApprovalRequired,
			"Approval required",
			fmt.Sprintf("Claim %s from %s needs manager review.", e.ExpenseNumber, owner.FullName),
			&e.ID); err != nil {
			return err
		}

		return s.audit.Create(tx, &models.AuditEntry{
			UserID:      owner.ID,
			Action:      "submit_expense",
			EntityType:  "expense",
			EntityID:    e.ID,
			ExpenseID:   &e.ID,
			Description: fmt.Sprintf("submitted %s (%s, %.2f %s)", e.ExpenseNumber, e.Category, e.Amount, e.Currency),
			IPAddress:   input.IPAddress,
		})
	})
	if err != nil {
		// Claim row failed, do not leave an orphaned upload behind
		if e.BillFilePath != "" {
			_ = s.bills.Remove(e.BillFilePath)
		}
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	go batch.Dispatch()

	s.logger.Info("Expense submitted",
		zap.String("expense_number", e.ExpenseNumber),
		zap.Int64("employee_id", owner.ID),
		zap.Float64("amount", e.Amount),
		zap.Bool("within_limits", e.IsWithinLimits),
		zap.Bool("analysis_present", e.AnalysisPresent),
		zap.String("duplicate_status", string(e.DuplicateStatus)))

	return e, nil
}

func (s *ExpenseService) validateSubmission(owner *models.User, input SubmitExpenseInput) error {
	if !owner.CanClaim {
		return ErrNotClaimable
	}
	if !input.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, input.Category)
	}
	if err := utils.ValidateAmount(input.Amount); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if input.ExpenseDate.IsZero() {
		return fmt.Errorf("%w: expense date is required", ErrValidation)
	}
	if input.ExpenseDate.After(time.Now().Add(24 * time.Hour)) {
		return fmt.Errorf("%w: expense date is in the future", ErrValidation)
	}
	if input.Category == models.CategoryTravel {
		if input.TravelMode == "" {
			return fmt.Errorf("%w: travel claims require a travel mode", ErrValidation)
		}
		if !input.TravelMode.IsValid() {
			return fmt.Errorf("%w: unknown travel mode %q", ErrValidation, input.TravelMode)
		}
	}

	if input.IsSelfDeclaration {
		if input.DeclarationReason == "" {
			return fmt.Errorf("%w: self-declared claims require a reason", ErrValidation)
		}
		return s.checkDeclarationBudget(owner, input.Amount)
	}
	if len(input.BillContent) == 0 {
		return fmt.Errorf("%w: a bill upload is required unless the claim is self-declared", ErrValidation)
	}
	return s.validateBillUpload(input)
}

// checkDeclarationBudget enforces the monthly no-bill allowances on top
// of the per-claim ceiling: a capped count of declarations and a capped
// running total per calendar month
func (s *ExpenseService) checkDeclarationBudget(owner *models.User, amount float64) error {
	monthlyTotal, maxCount, ok := policy.MonthlyDeclarationBudget(owner.Grade)
	if !ok {
		return nil
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	count, total, err := s.expenses.SelfDeclarationStats(owner.ID, monthStart)
	if err != nil {
		return fmt.Errorf("failed to check self-declaration budget: %w", err)
	}

	if count >= int64(maxCount) {
		return fmt.Errorf("%w: monthly limit of %d self-declared claims reached", ErrValidation, maxCount)
	}
	if total+amount > monthlyTotal {
		return fmt.Errorf("%w: monthly self-declaration total of %.2f would be exceeded, %.2f remaining",
			ErrValidation, monthlyTotal, monthlyTotal-total)
	}
	return nil
}

func (s *ExpenseService) validateBillUpload(input SubmitExpenseInput) error {
	if err := s.bills.Validate(input.BillFileName, int64(len(input.BillContent))); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// attachBill stores the upload, runs duplicate detection and the AI
// analysis. An exact file-hash match on another of the employee's
// active claims blocks the submission; a softer bill-details match
// only flags it for review. Analysis failure degrades: the claim
// continues without it.
func (s *ExpenseService) attachBill(ctx context.Context, owner *models.User, input SubmitExpenseInput, e *models.Expense) error {
	stored, err := s.bills.Save(owner.ID, input.BillFileName, input.BillContent)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	e.BillFilePath = stored.Path
	e.BillFileName = stored.OriginalName
	e.FileHash = stored.SHA256

	prior, err := s.expenses.FindByFileHash(owner.ID, stored.SHA256, 0)
	switch {
	case err == nil:
		s.logger.Warn("Exact duplicate bill blocked",
			zap.Int64("employee_id", owner.ID),
			zap.String("prior_expense", prior.ExpenseNumber))
		return fmt.Errorf("%w: this exact bill was already submitted as %s",
			ErrValidation, prior.ExpenseNumber)
	case errors.Is(err, repository.ErrNotFound):
		e.DuplicateStatus = models.DuplicateClean
	default:
		return fmt.Errorf("duplicate check failed: %w", err)
	}

	pages, err := s.renderer.RenderPages(stored.Path)
	if err != nil {
		s.logger.Warn("Bill rendering failed, proceeding without analysis", zap.Error(err))
		return nil
	}

	analysis, err := s.analyzer.AnalyzeBill(ctx, pages, input.Category, input.Amount)
	if err != nil {
		s.logger.Warn("Bill analysis unavailable, proceeding without it", zap.Error(err))
		return nil
	}

	e.AnalysisPresent = true
	e.Analysis = analysis
	e.BillNumber = analysis.BillNumber
	e.VendorName = analysis.VendorName

	s.flagBillDetailsDuplicate(owner, analysis, e)
	return nil
}

// flagBillDetailsDuplicate marks the claim suspected when an extracted
// bill number and vendor match another of the employee's active claims.
// Different scans of the same bill hash differently, so this is the net
// behind the exact-hash block; it flags for review, never blocks.
func (s *ExpenseService) flagBillDetailsDuplicate(owner *models.User, analysis *models.BillAnalysis, e *models.Expense) {
	if analysis.BillNumber == "" || analysis.VendorName == "" {
		return
	}
	prior, err := s.expenses.FindByBillDetails(owner.ID, analysis.BillNumber, analysis.VendorName, analysis.BillDate, 0)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Bill details duplicate check failed", zap.Error(err))
		}
		return
	}
	e.DuplicateStatus = models.DuplicateSuspected
	e.DuplicateOfID = &prior.ID
	s.logger.Warn("Duplicate bill details suspected",
		zap.Int64("employee_id", owner.ID),
		zap.String("bill_number", analysis.BillNumber),
		zap.String("prior_expense", prior.ExpenseNumber))
}

// syntheticDeclarationAnalysis stands in for the AI snapshot on claims
// without a bill, so approvers see the no-bill context in the same
// place as on every other claim
func syntheticDeclarationAnalysis(input SubmitExpenseInput) *models.BillAnalysis {
	return &models.BillAnalysis{
		IsAuthentic:     nil,
		ConfidenceScore: 0,
		BillNumber:      "SELF-DECL",
		BillDate:        input.ExpenseDate.Format("2006-01-02"),
		VendorName:      "Not Provided",
		ExtractedAmount: input.Amount,
		TravelMode:      string(input.TravelMode),
		Recommendation:  models.RecommendReview,
		Summary:         fmt.Sprintf("Self-declared expense - %.2f - %s", input.Amount, input.Category),
		RedFlags:        []string{"No bill provided - " + input.DeclarationReason},
	}
}

// expenseNumber issues EXP-YYYYMMDD-XXXXXX with a random uppercase hex
// suffix, so concurrent same-day submissions cannot collide
func expenseNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("EXP-%s-%s", at.Format("20060102"), suffix)
}

// Get fetches a claim with its decision trail, enforcing visibility:
// owners see their own claims, approvers see everything
func (s *ExpenseService) Get(viewer *models.User, id int64) (*models.Expense, error) {
	e, err := s.expenses.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !viewer.CanView(e.EmployeeID) {
		return nil, ErrForbidden
	}

	decisions, err := s.decisions.ListByExpense(e.ID)
	if err != nil {
		return nil, err
	}
	e.Decisions = decisions
	return e, nil
}

// BillFile returns the stored bill content and its original filename.
// Visibility follows the same rule as Get: the owner and approvers.
func (s *ExpenseService) BillFile(viewer *models.User, id int64) ([]byte, string, error) {
	e, err := s.expenses.GetByID(id)
	if err != nil {
		return nil, "", err
	}
	if !viewer.CanView(e.EmployeeID) {
		return nil, "", ErrForbidden
	}
	if e.BillFilePath == "" {
		return nil, "", repository.ErrNotFound
	}

	content, err := s.bills.Read(e.BillFilePath)
	if err != nil {
		return nil, "", err
	}
	return content, e.BillFileName, nil
}

// ListOwn returns the viewer's claims
func (s *ExpenseService) ListOwn(viewer *models.User, filter repository.ExpenseFilter) ([]*models.Expense, error) {
	filter.EmployeeID = &viewer.ID
	return s.expenses.List(filter)
}

// Delete removes a claim and its bill file. Only the owner may delete,
// and only while the claim is still in submitted state; once review has
// begun the record is permanent.
func (s *ExpenseService) Delete(owner *models.User, id int64, ipAddress string) error {
	e, err := s.expenses.GetByID(id)
	if err != nil {
		return err
	}
	if e.EmployeeID != owner.ID {
		s.recordDenied(owner.ID, e, "delete_expense_denied", "not the claim owner", ipAddress)
		return ErrForbidden
	}
	if e.Status != models.StatusSubmitted {
		s.recordDenied(owner.ID, e, "delete_expense_denied",
			fmt.Sprintf("claim is %s, deletion allowed only while submitted", e.Status), ipAddress)
		return ErrForbidden
	}

	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.expenses.Delete(tx, id); err != nil {
			return err
		}
		return s.audit.Create(tx, &models.AuditEntry{
			UserID:      owner.ID,
			Action:      "delete_expense",
			EntityType:  "expense",
			EntityID:    id,
			Description: fmt.Sprintf("deleted %s before review", e.ExpenseNumber),
			IPAddress:   ipAddress,
		})
	})
	if err != nil {
		return err
	}

	if e.BillFilePath != "" {
		if err := s.bills.Remove(e.BillFilePath); err != nil {
			s.logger.Warn("Failed to remove bill file after deletion",
				zap.String("path", e.BillFilePath),
				zap.Error(err))
		}
	}
	return nil
}

// AuditTrail returns the audit entries for one claim. Approvers only.
func (s *ExpenseService) AuditTrail(viewer *models.User, expenseID int64) ([]*models.AuditEntry, error) {
	e, err := s.expenses.GetByID(expenseID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanView(e.EmployeeID) {
		return nil, ErrForbidden
	}
	return s.audit.ListByExpense(expenseID)
}

func (s *ExpenseService) recordDenied(userID int64, e *models.Expense, action, reason, ipAddress string) {
	entry := &models.AuditEntry{
		UserID:      userID,
		Action:      action,
		EntityType:  "expense",
		EntityID:    e.ID,
		ExpenseID:   &e.ID,
		Description: reason,
		IPAddress:   ipAddress,
	}
	if err := s.audit.Create(nil, entry); err != nil {
		s.logger.Warn("Failed to record denied-action audit entry", zap.Error(err))
	}
}
