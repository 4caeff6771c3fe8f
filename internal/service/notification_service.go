// Package service holds the application logic tying together the
// repositories, the policy rules, the workflow machine and the AI
// analyzer.
package service

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/email"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
)

// NotificationService creates in-app notifications and mirrors them to
// email when the recipient has an address. Email failures are logged,
// never propagated.
type NotificationService struct {
	notifications *repository.NotificationRepository
	users         *repository.UserRepository
	sender        email.Sender
	logger        *zap.Logger
}

func NewNotificationService(
	notifications *repository.NotificationRepository,
	users *repository.UserRepository,
	sender email.Sender,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		sender:        sender,
		logger:        logger,
	}
}

type pendingEmail struct {
	to      string
	subject string
	body    string
}

// Batch groups the notifications written inside one transaction. The
// notification rows go through the transaction; the email copies are
// held back until Dispatch, so a rolled-back transaction sends no
// mail. Recipients are passed in as loaded users: nothing in the batch
// touches the connection pool, which the open transaction may be
// holding exclusively.
type Batch struct {
	svc    *NotificationService
	emails []pendingEmail
}

// NewBatch starts an empty notification batch
func (s *NotificationService) NewBatch() *Batch {
	return &Batch{svc: s}
}

// RoleRecipients resolves the active users holding a role. Call it
// before opening the transaction the batch will write into.
func (s *NotificationService) RoleRecipients(role models.Role) ([]*models.User, error) {
	users, err := s.users.ListByRole(role)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role recipients: %w", err)
	}
	return users, nil
}

// Notify creates an in-app notification for the user and queues the
// email copy for Dispatch
func (b *Batch) Notify(tx *sql.Tx, user *models.User, typ models.NotificationType, title, message string, expenseID *int64) error {
	n := &models.Notification{
		UserID:    user.ID,
		Type:      typ,
		Title:     title,
		Message:   message,
		ExpenseID: expenseID,
	}
	if err := b.svc.notifications.Create(tx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if user.Email != "" {
		b.emails = append(b.emails, pendingEmail{to: user.Email, subject: title, body: message})
	}
	return nil
}

// NotifyAll notifies every recipient, typically a review stage
func (b *Batch) NotifyAll(tx *sql.Tx, recipients []*models.User, typ models.NotificationType, title, message string, expenseID *int64) error {
	for _, user := range recipients {
		if err := b.Notify(tx, user, typ, title, message, expenseID); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch sends the queued email copies. Call it only after the
// transaction committed; callers usually run it in a goroutine.
func (b *Batch) Dispatch() {
	for _, p := range b.emails {
		if err := b.svc.sender.Send(p.to, p.subject, p.body); err != nil {
			b.svc.logger.Warn("Email notification failed",
				zap.String("to", p.to),
				zap.Error(err))
		}
	}
}

// ListForUser returns a user's notifications
func (s *NotificationService) ListForUser(userID int64, unreadOnly bool, limit int) ([]*models.Notification, error) {
	return s.notifications.ListByUser(userID, unreadOnly, limit)
}

// UnreadCount returns the unread badge count
func (s *NotificationService) UnreadCount(userID int64) (int64, error) {
	return s.notifications.CountUnread(userID)
}

// MarkRead marks one notification read for its owner
func (s *NotificationService) MarkRead(userID, notificationID int64) error {
	return s.notifications.MarkRead(userID, notificationID)
}

// MarkAllRead marks every unread notification read for the user
func (s *NotificationService) MarkAllRead(userID int64) (int64, error) {
	return s.notifications.MarkAllRead(userID)
}
