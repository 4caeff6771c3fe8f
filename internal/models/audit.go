package models

import "time"

// AuditEntry is an append-only compliance record of a state-changing
// action or a denied attempt at one
type AuditEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Action      string    `json:"action"`      // e.g. "approve_expense"
	EntityType  string    `json:"entity_type"` // e.g. "expense"
	EntityID    int64     `json:"entity_id"`
	ExpenseID   *int64    `json:"expense_id,omitempty"`
	Description string    `json:"description"`
	Changes     string    `json:"changes,omitempty"` // before/after as JSON
	IPAddress   string    `json:"ip_address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
