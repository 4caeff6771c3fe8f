package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
	"github.com/gaganhb01/Expense-Reimbursement-System/pkg/database"
)

// newTestDB opens a throwaway sqlite database with the real schema
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations(filepath.Join("..", "..", "migrations")))
	return db
}

func seedUser(t *testing.T, repo *UserRepository, username string, role models.Role, grade models.Grade) *models.User {
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
	require.NoError(t, repo.Create(nil, user))
	return user
}

func seedExpense(t *testing.T, repo *ExpenseRepository, owner int64, number string, mutate func(*models.Expense)) *models.Expense {
	t.Helper()
	now := time.Now()
	e := &models.Expense{
		ExpenseNumber:   number,
		EmployeeID:      owner,
		Category:        models.CategoryFood,
		Amount:          450,
		Currency:        "INR",
		ExpenseDate:     now.AddDate(0, 0, -1),
		Description:     "team lunch",
		Status:          models.StatusSubmitted,
		DuplicateStatus: models.DuplicateNotChecked,
		IsWithinLimits:  true,
		SubmittedAt:     &now,
	}
	if mutate != nil {
		mutate(e)
	}
	require.NoError(t, repo.Create(nil, e))
	return e
}
