package models

import "time"

// NotificationType classifies in-app notifications
type NotificationType string

const (
	NotifyExpenseSubmitted NotificationType = "expense_submitted"
	NotifyExpenseApproved  NotificationType = "expense_approved"
	NotifyExpenseRejected  NotificationType = "expense_rejected"
	NotifyApprovalRequired NotificationType = "approval_required"
	NotifySystem           NotificationType = "system"
)

// Notification is an in-app message addressed to one user
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	ExpenseID *int64           `json:"expense_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
}
