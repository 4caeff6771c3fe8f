// Package workflow defines the approval chain as an explicit transition
// table: current status x actor role x outcome -> next status. Any
// combination absent from the table is rejected, so the chain cannot be
// extended or short-circuited by accident.
package workflow

import (
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

// transitionKey identifies one row of the transition table
type transitionKey struct {
	from    models.Status
	role    models.Role
	outcome models.Outcome
}

// transitions is the complete approval chain:
//
//	submitted --manager approve--> hr_review
//	hr_review --hr approve-------> finance_review
//	finance_review --finance approve--> approved
//	any review stage --reject----> rejected
//	approved --finance mark_paid-> paid
//
// manager_review is a stored alias for the manager stage and carries the
// same manager transitions as submitted.
var transitions = buildTransitions()

func buildTransitions() map[transitionKey]models.Status {
	t := make(map[transitionKey]models.Status)

	permit := func(from models.Status, role models.Role, outcome models.Outcome, to models.Status) {
		t[transitionKey{from, role, outcome}] = to
	}

	for _, from := range []models.Status{models.StatusSubmitted, models.StatusManagerReview} {
		permit(from, models.RoleManager, models.OutcomeApprove, models.StatusHRReview)
		permit(from, models.RoleManager, models.OutcomeReject, models.StatusRejected)
	}

	permit(models.StatusHRReview, models.RoleHR, models.OutcomeApprove, models.StatusFinanceReview)
	permit(models.StatusHRReview, models.RoleHR, models.OutcomeReject, models.StatusRejected)

	permit(models.StatusFinanceReview, models.RoleFinance, models.OutcomeApprove, models.StatusApproved)
	permit(models.StatusFinanceReview, models.RoleFinance, models.OutcomeReject, models.StatusRejected)

	permit(models.StatusApproved, models.RoleFinance, models.OutcomeMarkPaid, models.StatusPaid)

	return t
}

// stageRole maps each reviewable status to the role that reviews it
var stageRole = map[models.Status]models.Role{
	models.StatusSubmitted:     models.RoleManager,
	models.StatusManagerReview: models.RoleManager,
	models.StatusHRReview:      models.RoleHR,
	models.StatusFinanceReview: models.RoleFinance,
}

// StageRole returns the role that reviews claims in the given status,
// and whether the status is a review stage at all
func StageRole(s models.Status) (models.Role, bool) {
	r, ok := stageRole[s]
	return r, ok
}

// StatusesForRole returns the review statuses the given role is
// responsible for. Admin covers every stage.
func StatusesForRole(role models.Role) []models.Status {
	var out []models.Status
	// stable order, callers build SQL IN clauses from this
	ordered := []models.Status{
		models.StatusSubmitted,
		models.StatusManagerReview,
		models.StatusHRReview,
		models.StatusFinanceReview,
	}
	for _, s := range ordered {
		if role == models.RoleAdmin || stageRole[s] == role {
			out = append(out, s)
		}
	}
	return out
}

// Next resolves a transition. actorRole admin acts with the stage's
// required role. Resolution order: terminal check, role check, table
// lookup, so callers get the most specific error.
func Next(current models.Status, actorRole models.Role, outcome models.Outcome) (models.Status, error) {
	// mark_paid is the one action allowed out of a terminal status
	if outcome == models.OutcomeMarkPaid {
		if current != models.StatusApproved {
			return "", ErrInvalidTransition
		}
		if actorRole != models.RoleFinance && actorRole != models.RoleAdmin {
			return "", ErrWrongRole
		}
		return models.StatusPaid, nil
	}

	if current.IsTerminal() {
		return "", ErrClaimFinal
	}

	required, ok := stageRole[current]
	if !ok {
		return "", ErrInvalidTransition
	}

	effective := actorRole
	if actorRole == models.RoleAdmin {
		effective = required
	}
	if effective != required {
		return "", ErrWrongRole
	}

	next, ok := transitions[transitionKey{current, effective, outcome}]
	if !ok {
		return "", ErrInvalidTransition
	}
	return next, nil
}

// Authorize runs the full guard set for a review action: terminal state,
// self-approval, role-stage match. It returns the resulting status on
// success.
func Authorize(current models.Status, actorID, ownerID int64, actorRole models.Role, outcome models.Outcome) (models.Status, error) {
	if actorID == ownerID {
		return "", ErrSelfApproval
	}
	return Next(current, actorRole, outcome)
}
