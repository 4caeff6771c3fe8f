package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/ai"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/workflow"
)

type chainFixture struct {
	*fixture
	owner   *models.User
	manager *models.User
	hr      *models.User
	finance *models.User
	claim   *models.Expense
}

func newChainFixture(t *testing.T) *chainFixture {
	t.Helper()
	f := newFixture(t)
	cf := &chainFixture{
		fixture: f,
		owner:   f.seedUser(t, "claimant", models.RoleEmployee, models.GradeB),
		manager: f.seedUser(t, "boss", models.RoleManager, models.GradeC),
		hr:      f.seedUser(t, "people", models.RoleHR, models.GradeC),
		finance: f.seedUser(t, "money", models.RoleFinance, models.GradeD),
	}
	f.analyzer.err = ai.ErrAnalysisUnavailable

	claim, err := f.expenseSvc.Submit(context.Background(), cf.owner, submitInput(billJPEG(t)))
	require.NoError(t, err)
	cf.claim = claim
	return cf
}

func TestDecide_FullChainToPaid(t *testing.T) {
	cf := newChainFixture(t)

	e, err := cf.approvalSvc.Decide(cf.manager, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeApprove, Comments: "ok"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusHRReview, e.Status)

	e, err = cf.approvalSvc.Decide(cf.hr, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeApprove})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinanceReview, e.Status)

	e, err = cf.approvalSvc.Decide(cf.finance, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeApprove})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, e.Status)
	require.NotNil(t, e.ApprovedAt)

	e, err = cf.approvalSvc.MarkPaid(cf.finance, cf.claim.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, e.Status)
	require.NotNil(t, e.PaidAt)

	// three review decisions plus the paid marker
	trail, err := cf.decisions.ListByExpense(cf.claim.ID)
	require.NoError(t, err)
	require.Len(t, trail, 4)
	assert.Equal(t, models.RoleManager, trail[0].Role)
	assert.Equal(t, models.RoleHR, trail[1].Role)
	assert.Equal(t, models.RoleFinance, trail[2].Role)
	assert.Equal(t, models.OutcomeMarkPaid, trail[3].Outcome)

	// owner heard about every stage
	notifs, err := cf.notifications.ListForUser(cf.owner.ID, false, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(notifs), 4)
}

func TestDecide_RejectionStopsChain(t *testing.T) {
	cf := newChainFixture(t)

	e, err := cf.approvalSvc.Decide(cf.manager, DecideInput{
		ExpenseID: cf.claim.ID,
		Outcome:   models.OutcomeReject,
		Comments:  "no supporting context",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, e.Status)
	assert.Equal(t, "no supporting context", e.RejectionReason)
	require.NotNil(t, e.RejectedBy)
	assert.Equal(t, cf.manager.ID, *e.RejectedBy)
	require.NotNil(t, e.RejectedAt)

	// further decisions refused
	_, err = cf.approvalSvc.Decide(cf.hr, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeApprove})
	assert.ErrorIs(t, err, workflow.ErrClaimFinal)
}

func TestDecide_RejectRequiresReason(t *testing.T) {
	cf := newChainFixture(t)

	_, err := cf.approvalSvc.Decide(cf.manager, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeReject})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDecide_WrongStageDeniedAndAudited(t *testing.T) {
	cf := newChainFixture(t)

	_, err := cf.approvalSvc.Decide(cf.finance, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeApprove})
	assert.ErrorIs(t, err, workflow.ErrWrongRole)

	trail, err := cf.audit.ListByExpense(cf.claim.ID)
	require.NoError(t, err)

	var denied *models.AuditEntry
	for _, entry := range trail {
		if entry.Action == "approve_expense_denied" {
			denied = entry
		}
	}
	require.NotNil(t, denied, "denied attempt must be audited")
	assert.Equal(t, cf.finance.ID, denied.UserID)
}

func TestDecide_SelfApprovalRefused(t *testing.T) {
	cf := newChainFixture(t)

	// claim submitted by the manager themselves
	managerClaim, err := cf.expenseSvc.Submit(context.Background(), cf.manager, submitInput(billJPEG(t)))
	require.NoError(t, err)

	_, err = cf.approvalSvc.Decide(cf.manager, DecideInput{ExpenseID: managerClaim.ID, Outcome: models.OutcomeApprove})
	assert.ErrorIs(t, err, workflow.ErrSelfApproval)
}

func TestDecide_EmployeeCannotDecide(t *testing.T) {
	cf := newChainFixture(t)

	_, err := cf.approvalSvc.Decide(cf.owner, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeApprove})
	assert.Error(t, err)
}

func TestDecide_MarkPaidOnlyWhenApproved(t *testing.T) {
	cf := newChainFixture(t)

	_, err := cf.approvalSvc.MarkPaid(cf.finance, cf.claim.ID, "")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestDecide_CompletesOnSingleConnectionPool(t *testing.T) {
	cf := newChainFixture(t)

	// the fixture pool has one connection; a recipient lookup inside the
	// decision transaction would hang forever
	done := make(chan error, 1)
	go func() {
		_, err := cf.approvalSvc.Decide(cf.manager, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeApprove})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("decision stalled waiting on the connection pool")
	}
}

func TestDecide_ConcurrentDecisionConflict(t *testing.T) {
	cf := newChainFixture(t)

	// another manager moved the claim while this approval was in flight
	second := cf.seedUser(t, "boss.two", models.RoleManager, models.GradeC)
	_, err := cf.approvalSvc.Decide(second, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeApprove})
	require.NoError(t, err)

	// simulate the stale read: Decide re-reads, so force the raw conflict
	err = cf.expenses.TransitionStatus(nil, cf.claim.ID, models.StatusSubmitted, models.StatusHRReview, cf.claim.CreatedAt)
	assert.ErrorIs(t, err, repository.ErrStatusConflict)
}

func TestPendingQueue(t *testing.T) {
	cf := newChainFixture(t)

	queue, err := cf.approvalSvc.PendingQueue(cf.manager, 10, 0)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, cf.claim.ID, queue[0].ID)

	// nothing waits on hr yet
	queue, err = cf.approvalSvc.PendingQueue(cf.hr, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = cf.approvalSvc.Decide(cf.manager, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeApprove})
	require.NoError(t, err)

	queue, err = cf.approvalSvc.PendingQueue(cf.hr, 10, 0)
	require.NoError(t, err)
	assert.Len(t, queue, 1)

	// employees have no queue
	_, err = cf.approvalSvc.PendingQueue(cf.owner, 10, 0)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPendingQueue_AdminSeesAllStages(t *testing.T) {
	cf := newChainFixture(t)
	admin := cf.seedUser(t, "root", models.RoleAdmin, models.GradeD)

	queue, err := cf.approvalSvc.PendingQueue(admin, 10, 0)
	require.NoError(t, err)
	assert.Len(t, queue, 1)

	_, err = cf.approvalSvc.Decide(admin, DecideInput{ExpenseID: cf.claim.ID, Outcome: models.OutcomeApprove})
	require.NoError(t, err)

	queue, err = cf.approvalSvc.PendingQueue(admin, 10, 0)
	require.NoError(t, err)
	assert.Len(t, queue, 1) // now at hr stage, still visible to admin
}
