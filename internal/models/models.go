package models

import (
	"database/sql"
	"time"
)

// Role values a user can hold
const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleEmployee   = "employee"
)

// ValidRole reports whether role is one of the three enumerated values.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleAccountant || role == RoleEmployee
}

// Expense status values
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Audit log action tags
const (
	ActionUserRegister   = "USER_REGISTER"
	ActionLogin          = "LOGIN"
	ActionUserCreate     = "USER_CREATE"
	ActionUserDelete     = "USER_DELETE"
	ActionPasswordChange = "PASSWORD_CHANGE"
	ActionFundCreate     = "FUND_CREATE"
	ActionFundTopUp      = "FUND_TOPUP"
	ActionFundDelete     = "FUND_DELETE"
	ActionExpenseSubmit  = "EXPENSE_SUBMIT"
	ActionExpenseEdit    = "EXPENSE_EDIT"
	ActionExpenseDelete  = "EXPENSE_DELETE"
	ActionExpenseApprove = "EXPENSE_APPROVE"
	ActionExpenseReject  = "EXPENSE_REJECT"
)

// User represents a user in the system
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Identity is the decoded bearer credential attached to each
// authenticated request.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Fund represents a named cash pool
type Fund struct {
	ID              string    `db:"id" json:"id"`
	FundName        string    `db:"fund_name" json:"fundName"`
	TotalAmount     float64   `db:"total_amount" json:"totalAmount"`
	RemainingAmount float64   `db:"remaining_amount" json:"remainingAmount"`
	CreatedBy       string    `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// Expense represents a reimbursement request against a fund
type Expense struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"userId"`
	FundID      string         `db:"fund_id" json:"fundId"`
	Amount      float64        `db:"amount" json:"amount"`
	Category    string         `db:"category" json:"category"`
	Description string         `db:"description" json:"description"`
	ReceiptURL  sql.NullString `db:"receipt_url" json:"-"`
	Status      string         `db:"status" json:"status"`
	ApprovedBy  sql.NullString `db:"approved_by" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// ExpenseRow is an expense joined with requester and fund names for display.
type ExpenseRow struct {
	Expense
	EmployeeName string `db:"employee_name" json:"employeeName"`
	FundName     string `db:"fund_name" json:"fundName"`
}

// AuditLogEntry represents one append-only action record. UserID is null
// for system actions.
type AuditLogEntry struct {
	ID        string         `db:"id" json:"id"`
	UserID    sql.NullString `db:"user_id" json:"-"`
	Action    string         `db:"action" json:"action"`
	Details   string         `db:"details" json:"details"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// AuditLogRow is an audit entry joined with the actor's display name.
type AuditLogRow struct {
	AuditLogEntry
	UserName  sql.NullString `db:"user_name" json:"-"`
	UserEmail sql.NullString `db:"user_email" json:"-"`
}

// Stats holds the on-demand reporting aggregates.
type Stats struct {
	TotalApprovedExpenses float64         `json:"totalApprovedExpenses"`
	PendingRequests       int             `json:"pendingRequests"`
	AvailableLiquidity    float64         `json:"availableLiquidity"`
	CategoryStats         []CategoryTotal `json:"categoryStats"`
}

// CategoryTotal is the sum of approved expense amounts for one category.
type CategoryTotal struct {
	Category string  `db:"category" json:"category"`
	Total    float64 `db:"total" json:"total"`
}
