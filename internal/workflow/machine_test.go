package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

func TestNext_FullApprovalChain(t *testing.T) {
	s, err := Next(models.StatusSubmitted, models.RoleManager, models.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHRReview, s)

	s, err = Next(s, models.RoleHR, models.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinanceReview, s)

	s, err = Next(s, models.RoleFinance, models.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, s)

	s, err = Next(s, models.RoleFinance, models.OutcomeMarkPaid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, s)
}

func TestNext_RejectAtEachStage(t *testing.T) {
	tests := []struct {
		name   string
		status models.Status
		role   models.Role
	}{
		{"manager rejects", models.StatusSubmitted, models.RoleManager},
		{"manager rejects alias stage", models.StatusManagerReview, models.RoleManager},
		{"hr rejects", models.StatusHRReview, models.RoleHR},
		{"finance rejects", models.StatusFinanceReview, models.RoleFinance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Next(tt.status, tt.role, models.OutcomeReject)
			require.NoError(t, err)
			assert.Equal(t, models.StatusRejected, s)
		})
	}
}

func TestNext_WrongRole(t *testing.T) {
	tests := []struct {
		name   string
		status models.Status
		role   models.Role
	}{
		{"hr acts on manager stage", models.StatusSubmitted, models.RoleHR},
		{"finance acts on manager stage", models.StatusSubmitted, models.RoleFinance},
		{"manager acts on hr stage", models.StatusHRReview, models.RoleManager},
		{"employee acts on finance stage", models.StatusFinanceReview, models.RoleEmployee},
		{"manager marks paid", models.StatusApproved, models.RoleManager},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Next(tt.status, tt.role, models.OutcomeApprove)
			if tt.status == models.StatusApproved {
				_, err = Next(tt.status, tt.role, models.OutcomeMarkPaid)
			}
			assert.ErrorIs(t, err, ErrWrongRole)
		})
	}
}

func TestNext_TerminalStatuses(t *testing.T) {
	for _, s := range []models.Status{models.StatusApproved, models.StatusRejected, models.StatusPaid} {
		_, err := Next(s, models.RoleFinance, models.OutcomeApprove)
		assert.ErrorIs(t, err, ErrClaimFinal, "status %s", s)
	}
}

func TestNext_MarkPaidOnlyFromApproved(t *testing.T) {
	for _, s := range []models.Status{
		models.StatusSubmitted,
		models.StatusHRReview,
		models.StatusFinanceReview,
		models.StatusRejected,
		models.StatusPaid,
	} {
		_, err := Next(s, models.RoleFinance, models.OutcomeMarkPaid)
		assert.ErrorIs(t, err, ErrInvalidTransition, "status %s", s)
	}
}

func TestNext_DraftIsNotReviewable(t *testing.T) {
	_, err := Next(models.StatusDraft, models.RoleManager, models.OutcomeApprove)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNext_AdminActsAtAnyStage(t *testing.T) {
	s, err := Next(models.StatusSubmitted, models.RoleAdmin, models.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHRReview, s)

	s, err = Next(models.StatusHRReview, models.RoleAdmin, models.OutcomeReject)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, s)

	s, err = Next(models.StatusApproved, models.RoleAdmin, models.OutcomeMarkPaid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, s)
}

func TestAuthorize_SelfApproval(t *testing.T) {
	_, err := Authorize(models.StatusSubmitted, 7, 7, models.RoleAdmin, models.OutcomeApprove)
	assert.ErrorIs(t, err, ErrSelfApproval)

	s, err := Authorize(models.StatusSubmitted, 7, 8, models.RoleManager, models.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHRReview, s)
}

func TestStatusesForRole(t *testing.T) {
	assert.Equal(t,
		[]models.Status{models.StatusSubmitted, models.StatusManagerReview},
		StatusesForRole(models.RoleManager))
	assert.Equal(t, []models.Status{models.StatusHRReview}, StatusesForRole(models.RoleHR))
	assert.Equal(t, []models.Status{models.StatusFinanceReview}, StatusesForRole(models.RoleFinance))
	assert.Len(t, StatusesForRole(models.RoleAdmin), 4)
	assert.Empty(t, StatusesForRole(models.RoleEmployee))
}

func TestStageRole(t *testing.T) {
	r, ok := StageRole(models.StatusFinanceReview)
	require.True(t, ok)
	assert.Equal(t, models.RoleFinance, r)

	_, ok = StageRole(models.StatusApproved)
	assert.False(t, ok)
}
