// Package server exposes the HTTP API: authentication, claim
// submission, the approval chain, notifications and reports.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/auth"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/service"
)

// Config holds the HTTP listener settings
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wires the services into a gin router
type Server struct {
	cfg           Config
	router        *gin.Engine
	users         *repository.UserRepository
	tokens        *auth.JWTManager
	authSvc       *service.AuthService
	expenseSvc    *service.ExpenseService
	approvalSvc   *service.ApprovalService
	notifications *service.NotificationService
	reports       *service.ReportService
	logger        *zap.Logger
}

func New(
	cfg Config,
	users *repository.UserRepository,
	tokens *auth.JWTManager,
	authSvc *service.AuthService,
	expenseSvc *service.ExpenseService,
	approvalSvc *service.ApprovalService,
	notifications *service.NotificationService,
	reports *service.ReportService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cfg:           cfg,
		users:         users,
		tokens:        tokens,
		authSvc:       authSvc,
		expenseSvc:    expenseSvc,
		approvalSvc:   approvalSvc,
		notifications: notifications,
		reports:       reports,
		logger:        logger,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured handler, used directly by tests
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(s.logger))
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "expense-reimbursement",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/login", s.handleLogin)
		authRoutes.POST("/refresh", s.handleRefresh)
		authRoutes.GET("/me", auth.Middleware(s.tokens), s.handleMe)
	}

	protected := api.Group("")
	protected.Use(auth.Middleware(s.tokens))
	{
		protected.POST("/expenses", s.handleSubmitExpense)
		protected.GET("/expenses", s.handleListExpenses)
		protected.GET("/expenses/:id", s.handleGetExpense)
		protected.DELETE("/expenses/:id", s.handleDeleteExpense)
		protected.GET("/expenses/:id/audit", s.handleExpenseAudit)
		protected.GET("/expenses/:id/bill", s.handleDownloadBill)

		approvers := auth.RequireRoles(
			models.RoleManager, models.RoleHR, models.RoleFinance, models.RoleAdmin)
		protected.POST("/expenses/:id/approve", approvers, s.handleApprove)
		protected.POST("/expenses/:id/reject", approvers, s.handleReject)
		protected.POST("/expenses/:id/pay", approvers, s.handleMarkPaid)
		protected.GET("/approvals/pending", approvers, s.handlePendingQueue)

		protected.GET("/notifications", s.handleListNotifications)
		protected.GET("/notifications/unread-count", s.handleUnreadCount)
		protected.POST("/notifications/:id/read", s.handleMarkNotificationRead)
		protected.POST("/notifications/read-all", s.handleMarkAllRead)

		protected.GET("/reports/search", s.handleSearch)
		protected.GET("/reports/summary", s.handleSummary)
		protected.GET("/reports/export", s.handleExport)
	}

	return router
}

// Run starts the listener and blocks until ctx is cancelled, then
// shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// currentUser resolves the authenticated user from the token identity.
// The fresh read picks up role, grade and active/claim flag changes
// made since the token was issued.
func (s *Server) currentUser(c *gin.Context) (*models.User, bool) {
	userID, ok := auth.UserIDFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil, false
	}
	user, err := s.users.GetByID(userID)
	if err != nil || !user.IsActive {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account unavailable"})
		return nil, false
	}
	return user, true
}

func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
