package models

// Status is a claim's position in the approval lifecycle
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSubmitted     Status = "submitted"
	StatusManagerReview Status = "manager_review"
	StatusHRReview      Status = "hr_review"
	StatusFinanceReview Status = "finance_review"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusPaid          Status = "paid"
)

var validStatuses = map[Status]bool{
	StatusDraft:         true,
	StatusSubmitted:     true,
	StatusManagerReview: true,
	StatusHRReview:      true,
	StatusFinanceReview: true,
	StatusApproved:      true,
	StatusRejected:      true,
	StatusPaid:          true,
}

// Terminal states for the review chain: once reached, no further review
// decision is ever accepted. approved still permits the finance mark-paid
// step, which is not a review decision.
var terminalStatuses = map[Status]bool{
	StatusApproved: true,
	StatusRejected: true,
	StatusPaid:     true,
}

// IsValid returns true if the status is a member of the fixed status set
func (s Status) IsValid() bool { return validStatuses[s] }

// IsTerminal returns true if no review decision may follow this status
func (s Status) IsTerminal() bool { return terminalStatuses[s] }

// String returns the string representation of the status
func (s Status) String() string { return string(s) }
