package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/auth"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/service"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/workflow"
)

// respondError maps service error kinds onto HTTP statuses. Unknown
// errors become opaque 500s so internals never leak to clients.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrWrongTokenType):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials or token"})

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotClaimable),
		errors.Is(err, workflow.ErrWrongRole),
		errors.Is(err, workflow.ErrSelfApproval):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

	case errors.Is(err, repository.ErrStatusConflict),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrClaimFinal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		s.logger.Error("Unhandled request error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
