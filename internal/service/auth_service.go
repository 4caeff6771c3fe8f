package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/auth"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
)

// AuthService handles login, token refresh and identity lookup
type AuthService struct {
	users  *repository.UserRepository
	audit  *repository.AuditRepository
	tokens *auth.JWTManager
	logger *zap.Logger
}

func NewAuthService(
	users *repository.UserRepository,
	audit *repository.AuditRepository,
	tokens *auth.JWTManager,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{users: users, audit: audit, tokens: tokens, logger: logger}
}

// Login verifies credentials and issues a token pair. Inactive accounts
// are refused with the same error as bad credentials so probing cannot
// distinguish them.
func (s *AuthService) Login(username, password, ipAddress string) (*auth.TokenPair, *models.User, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		return nil, nil, auth.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.logger.Warn("Login attempt on inactive account", zap.String("username", username))
		return nil, nil, auth.ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(user.HashedPassword, password); err != nil {
		s.recordAudit(user.ID, "login_failed", "invalid password", ipAddress)
		return nil, nil, auth.ErrInvalidCredentials
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(user.ID, now); err != nil {
		s.logger.Warn("Failed to stamp last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	user.LastLogin = &now

	s.recordAudit(user.ID, "login", "user logged in", ipAddress)
	s.logger.Info("User logged in",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))

	return pair, user, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The user is
// re-read so role or grade changes take effect on the new tokens.
func (s *AuthService) Refresh(refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, auth.ErrTokenInvalid
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, auth.ErrTokenInvalid
	}
	if !user.IsActive {
		return nil, auth.ErrTokenInvalid
	}

	return s.tokens.GeneratePair(user)
}

// Me returns the authenticated user's profile
func (s *AuthService) Me(userID int64) (*models.User, error) {
	return s.users.GetByID(userID)
}

func (s *AuthService) recordAudit(userID int64, action, description, ipAddress string) {
	entry := &models.AuditEntry{
		UserID:      userID,
		Action:      action,
		EntityType:  "user",
		EntityID:    userID,
		Description: description,
		IPAddress:   ipAddress,
	}
	if err := s.audit.Create(nil, entry); err != nil {
		s.logger.Warn("Failed to record auth audit entry", zap.Error(err))
	}
}
