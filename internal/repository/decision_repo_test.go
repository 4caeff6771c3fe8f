package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

func TestDecisionRepository_CreateAndList(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.DB, zap.NewNop())
	expenses := NewExpenseRepository(db.DB, zap.NewNop())
	repo := NewDecisionRepository(db.DB, zap.NewNop())

	owner := seedUser(t, users, "owner", models.RoleEmployee, models.GradeA)
	manager := seedUser(t, users, "manager", models.RoleManager, models.GradeC)
	hr := seedUser(t, users, "hr", models.RoleHR, models.GradeC)
	e := seedExpense(t, expenses, owner.ID, "EXP-DEC", nil)

	first := &models.Decision{
		ExpenseID:  e.ID,
		ApproverID: manager.ID,
		Role:       models.RoleManager,
		Outcome:    models.OutcomeApprove,
		Comments:   "looks fine",
		DecidedAt:  time.Now().Add(-time.Minute),
	}
	require.NoError(t, repo.Create(nil, first))
	assert.NotZero(t, first.ID)

	second := &models.Decision{
		ExpenseID:  e.ID,
		ApproverID: hr.ID,
		Role:       models.RoleHR,
		Outcome:    models.OutcomeApprove,
	}
	require.NoError(t, repo.Create(nil, second))
	assert.False(t, second.DecidedAt.IsZero())

	trail, err := repo.ListByExpense(e.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, models.RoleManager, trail[0].Role)
	assert.Equal(t, "looks fine", trail[0].Comments)
	assert.Equal(t, models.RoleHR, trail[1].Role)
}

func TestDecisionRepository_EmptyTrail(t *testing.T) {
	db := newTestDB(t)
	repo := NewDecisionRepository(db.DB, zap.NewNop())

	trail, err := repo.ListByExpense(12345)
	require.NoError(t, err)
	assert.Empty(t, trail)
}
