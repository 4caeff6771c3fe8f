package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/ai"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/auth"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/bill"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/config"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/email"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/server"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/service"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/storage"
	"github.com/gaganhb01/Expense-Reimbursement-System/pkg/database"
	"github.com/gaganhb01/Expense-Reimbursement-System/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Expense Reimbursement System",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Create necessary directories
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	users := repository.NewUserRepository(db.DB, logger)
	expenses := repository.NewExpenseRepository(db.DB, logger)
	decisions := repository.NewDecisionRepository(db.DB, logger)
	notificationRepo := repository.NewNotificationRepository(db.DB, logger)
	audit := repository.NewAuditRepository(db.DB, logger)

	// Initialize bill storage and analysis
	bills, err := storage.NewBillStore(cfg.Upload.Dir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize bill storage", zap.Error(err))
	}

	renderer := bill.NewRenderer(logger)
	analyzer := ai.NewOpenAIAnalyzer(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature, cfg.OpenAI.Timeout, logger)

	// Email notifications are optional, absence of an SMTP host
	// falls back to in-app notifications only
	var sender email.Sender
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, logger)
	} else {
		sender = email.NewNoopSender(logger)
	}

	// Initialize services
	notifications := service.NewNotificationService(notificationRepo, users, sender, logger)
	tokens := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	authSvc := service.NewAuthService(users, audit, tokens, logger)
	expenseSvc := service.NewExpenseService(db, expenses, users, decisions, audit, notifications,
		bills, renderer, analyzer, logger)
	approvalSvc := service.NewApprovalService(db, expenses, users, decisions, audit, notifications, logger)
	reportSvc := service.NewReportService(expenses, users, logger)

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, users, tokens, authSvc, expenseSvc, approvalSvc, notifications, reportSvc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped")
}
