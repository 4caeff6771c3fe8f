// Package repository is the persistence layer. Repositories speak raw
// SQL against sqlite and accept an optional *sql.Tx so services can
// group writes in a transaction.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

var ErrNotFound = errors.New("record not found")

// UserRepository handles user database operations
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

const userColumns = `
	id, email, username, full_name, employee_id, hashed_password,
	role, grade, department, is_active, can_claim, created_at, last_login
`

// Create inserts a new user record
func (r *UserRepository) Create(tx *sql.Tx, user *models.User) error {
	query := `
		INSERT INTO users (
			email, username, full_name, employee_id, hashed_password,
			role, grade, department, is_active, can_claim, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	} else {
		now = user.CreatedAt
	}

	result, err := execer(r.db, tx).Exec(query,
		user.Email,
		user.Username,
		user.FullName,
		user.EmployeeID,
		user.HashedPassword,
		user.Role,
		user.Grade,
		user.Department,
		user.IsActive,
		user.CanClaim,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	return nil
}

// GetByID fetches a user by primary key
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(r.db.QueryRow(query, id))
}

// GetByUsername fetches a user by username. Used by login.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return r.scanUser(r.db.QueryRow(query, username))
}

// GetByEmail fetches a user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.scanUser(r.db.QueryRow(query, email))
}

// ListByRole returns the active users holding the given role. Used to
// fan out approval-required notifications to a review stage.
func (r *UserRepository) ListByRole(role models.Role) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = ? AND is_active = 1 ORDER BY id`

	rows, err := r.db.Query(query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := r.scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateLastLogin stamps the login time
func (r *UserRepository) UpdateLastLogin(id int64, at time.Time) error {
	_, err := r.db.Exec(`UPDATE users SET last_login = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	user, err := r.scanUserRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}

func (r *UserRepository) scanUserRows(s rowScanner) (*models.User, error) {
	var user models.User
	var lastLogin sql.NullTime
	err := s.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FullName,
		&user.EmployeeID,
		&user.HashedPassword,
		&user.Role,
		&user.Grade,
		&user.Department,
		&user.IsActive,
		&user.CanClaim,
		&user.CreatedAt,
		&lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return &user, nil
}

// execer abstracts over *sql.DB and *sql.Tx for optional-transaction
// repository methods
type sqlExecer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func execer(db *sql.DB, tx *sql.Tx) sqlExecer {
	if tx != nil {
		return tx
	}
	return db
}
