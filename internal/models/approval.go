package models

import "time"

// Outcome is the verdict an approver records on a claim
type Outcome string

const (
	OutcomeApprove  Outcome = "approve"
	OutcomeReject   Outcome = "reject"
	OutcomeMarkPaid Outcome = "mark_paid"
)

// Decision is one approver's resolution of a review stage.
// Rows are append-only; a decision is never updated after insert.
type Decision struct {
	ID         int64     `json:"id"`
	ExpenseID  int64     `json:"expense_id"`
	ApproverID int64     `json:"approver_id"`
	Role       Role      `json:"role"`
	Outcome    Outcome   `json:"outcome"`
	Comments   string    `json:"comments,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}
