package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/auth"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

func newAuthFixture(t *testing.T) (*fixture, *AuthService) {
	t.Helper()
	f := newFixture(t)
	tokens := auth.NewJWTManager("test-secret-key-32-bytes-long!!!", 30*time.Minute, 7*24*time.Hour)
	return f, NewAuthService(f.users, f.audit, tokens, zap.NewNop())
}

func (f *fixture) seedCredentialed(t *testing.T, username, password string, role models.Role) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{
		Email:          username + "@example.com",
		Username:       username,
		FullName:       username,
		EmployeeID:     "EMP-" + username,
		HashedPassword: hash,
		Role:           role,
		Grade:          models.GradeB,
		IsActive:       true,
		CanClaim:       true,
	}
	require.NoError(t, f.users.Create(nil, user))
	return user
}

func TestLogin(t *testing.T) {
	f, svc := newAuthFixture(t)
	f.seedCredentialed(t, "asha", "correct-horse", models.RoleEmployee)

	pair, user, err := svc.Login("asha", "correct-horse", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotNil(t, user.LastLogin)

	trail, err := f.audit.ListByUser(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "login", trail[0].Action)
	assert.Equal(t, "10.0.0.1", trail[0].IPAddress)
}

func TestLogin_Failures(t *testing.T) {
	f, svc := newAuthFixture(t)
	user := f.seedCredentialed(t, "asha", "correct-horse", models.RoleEmployee)

	_, _, err := svc.Login("asha", "wrong", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = svc.Login("ghost", "whatever", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	// inactive accounts fail identically to bad credentials
	_, err2 := f.db.Exec(`UPDATE users SET is_active = 0 WHERE id = ?`, user.ID)
	require.NoError(t, err2)
	_, _, err = svc.Login("asha", "correct-horse", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRefresh(t *testing.T) {
	f, svc := newAuthFixture(t)
	user := f.seedCredentialed(t, "asha", "correct-horse", models.RoleEmployee)

	pair, _, err := svc.Login("asha", "correct-horse", "")
	require.NoError(t, err)

	fresh, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)

	// access tokens cannot be used to refresh
	_, err = svc.Refresh(pair.AccessToken)
	assert.Error(t, err)

	// deactivated users cannot refresh
	_, err2 := f.db.Exec(`UPDATE users SET is_active = 0 WHERE id = ?`, user.ID)
	require.NoError(t, err2)
	_, err = svc.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestMe(t *testing.T) {
	f, svc := newAuthFixture(t)
	user := f.seedCredentialed(t, "asha", "correct-horse", models.RoleManager)

	me, err := svc.Me(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha", me.Username)
	assert.Equal(t, models.RoleManager, me.Role)
}
