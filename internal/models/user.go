package models

import "time"

// Role identifies what a user may do in the approval chain
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleFinance  Role = "finance"
	RoleAdmin    Role = "admin"
)

// Grade is the employee seniority tier governing spending ceilings
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

var validRoles = map[Role]bool{
	RoleEmployee: true,
	RoleManager:  true,
	RoleHR:       true,
	RoleFinance:  true,
	RoleAdmin:    true,
}

var validGrades = map[Grade]bool{
	GradeA: true,
	GradeB: true,
	GradeC: true,
	GradeD: true,
}

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool { return validRoles[r] }

// IsApprover returns true if the role participates in the approval chain
func (r Role) IsApprover() bool {
	return r == RoleManager || r == RoleHR || r == RoleFinance || r == RoleAdmin
}

// IsValid returns true if the grade is one of the known grades
func (g Grade) IsValid() bool { return validGrades[g] }

// User is a system user
type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	Username       string     `json:"username"`
	FullName       string     `json:"full_name"`
	EmployeeID     string     `json:"employee_id"`
	HashedPassword string     `json:"-"`
	Role           Role       `json:"role"`
	Grade          Grade      `json:"grade"`
	Department     string     `json:"department"`
	IsActive       bool       `json:"is_active"`
	CanClaim       bool       `json:"can_claim_expenses"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// CanView reports whether the user may read the given claim
func (u *User) CanView(ownerID int64) bool {
	return u.ID == ownerID || u.Role.IsApprover()
}
