package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

func TestNotificationRepository_CreateAndList(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.DB, zap.NewNop())
	repo := NewNotificationRepository(db.DB, zap.NewNop())

	user := seedUser(t, users, "notified", models.RoleEmployee, models.GradeA)

	n := &models.Notification{
		UserID:  user.ID,
		Type:    models.NotifyExpenseApproved,
		Title:   "Expense approved",
		Message: "EXP-1 was approved by finance",
	}
	require.NoError(t, repo.Create(nil, n))
	assert.NotZero(t, n.ID)

	list, err := repo.ListByUser(user.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotifyExpenseApproved, list[0].Type)
	assert.False(t, list[0].IsRead)
	assert.Nil(t, list[0].ReadAt)
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.DB, zap.NewNop())
	repo := NewNotificationRepository(db.DB, zap.NewNop())

	user := seedUser(t, users, "reader", models.RoleEmployee, models.GradeA)
	other := seedUser(t, users, "other", models.RoleEmployee, models.GradeA)

	n := &models.Notification{UserID: user.ID, Type: models.NotifySystem, Title: "hello"}
	require.NoError(t, repo.Create(nil, n))

	// another user cannot mark it
	assert.ErrorIs(t, repo.MarkRead(other.ID, n.ID), ErrNotFound)

	require.NoError(t, repo.MarkRead(user.ID, n.ID))

	unread, err := repo.CountUnread(user.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	list, err := repo.ListByUser(user.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)
	assert.NotNil(t, list[0].ReadAt)

	// already read
	assert.ErrorIs(t, repo.MarkRead(user.ID, n.ID), ErrNotFound)
}

func TestNotificationRepository_UnreadFilterAndMarkAll(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.DB, zap.NewNop())
	repo := NewNotificationRepository(db.DB, zap.NewNop())

	user := seedUser(t, users, "busy", models.RoleManager, models.GradeC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(nil, &models.Notification{
			UserID: user.ID,
			Type:   models.NotifyApprovalRequired,
			Title:  "Approval required",
		}))
	}

	count, err := repo.CountUnread(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	unread, err := repo.ListByUser(user.ID, true, 2)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	marked, err := repo.MarkAllRead(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)

	unread, err = repo.ListByUser(user.ID, true, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
