package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/bill"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/email"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/storage"
	"github.com/gaganhb01/Expense-Reimbursement-System/pkg/database"
)

// stubAnalyzer returns a canned analysis or a canned error
type stubAnalyzer struct {
	analysis *models.BillAnalysis
	err      error
	calls    int
}

func (s *stubAnalyzer) AnalyzeBill(_ context.Context, _ [][]byte, _ models.Category, _ float64) (*models.BillAnalysis, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.analysis, nil
}

type fixture struct {
	db            *database.DB
	users         *repository.UserRepository
	expenses      *repository.ExpenseRepository
	decisions     *repository.DecisionRepository
	audit         *repository.AuditRepository
	notifications *NotificationService
	expenseSvc    *ExpenseService
	approvalSvc   *ApprovalService
	reportSvc     *ReportService
	authSvc       *AuthService
	analyzer      *stubAnalyzer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "svc.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations(filepath.Join("..", "..", "migrations")))

	users := repository.NewUserRepository(db.DB, logger)
	expenses := repository.NewExpenseRepository(db.DB, logger)
	decisions := repository.NewDecisionRepository(db.DB, logger)
	audit := repository.NewAuditRepository(db.DB, logger)
	notificationRepo := repository.NewNotificationRepository(db.DB, logger)

	notifications := NewNotificationService(notificationRepo, users, email.NewNoopSender(logger), logger)

	bills, err := storage.NewBillStore(t.TempDir(), logger)
	require.NoError(t, err)

	analyzer := &stubAnalyzer{}

	f := &fixture{
		db:            db,
		users:         users,
		expenses:      expenses,
		decisions:     decisions,
		audit:         audit,
		notifications: notifications,
		analyzer:      analyzer,
	}
	f.expenseSvc = NewExpenseService(db, expenses, users, decisions, audit, notifications,
		bills, bill.NewRenderer(logger), analyzer, logger)
	f.approvalSvc = NewApprovalService(db, expenses, users, decisions, audit, notifications, logger)
	f.reportSvc = NewReportService(expenses, users, logger)
	return f
}

func (f *fixture) seedUser(t *testing.T, username string, role models.Role, grade models.Grade) *models.User {
	t.Helper()
	user := &models.User{
		Email:          username + "@example.com",
		Username:       username,
		FullName:       username,
		EmployeeID:     "EMP-" + username,
		HashedPassword: "x",
		Role:           role,
		Grade:          grade,
		Department:     "engineering",
		IsActive:       true,
		CanClaim:       true,
	}
	require.NoError(t, f.users.Create(nil, user))
	return user
}

// billJPEG is a valid tiny JPEG so the renderer succeeds
func billJPEG(t *testing.T) []byte {
	return billJPEGSeed(t, 0)
}

// billJPEGSeed varies the image dimensions so each seed yields
// distinct bytes, and so a distinct file hash
func billJPEGSeed(t *testing.T, seed int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4+seed, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func submitInput(content []byte) SubmitExpenseInput {
	return SubmitExpenseInput{
		Category:     models.CategoryFood,
		Amount:       450,
		ExpenseDate:  time.Now().AddDate(0, 0, -1),
		Description:  "team lunch",
		BillFileName: "bill.jpg",
		BillContent:  content,
	}
}
