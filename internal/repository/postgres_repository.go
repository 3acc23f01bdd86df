package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ralnuaimi/petty-cash-server/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id string) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	CountUserRecords(ctx context.Context, userID string) (int, error)

	// Fund operations
	CreateFund(ctx context.Context, fund *models.Fund) error
	GetFund(ctx context.Context, id string) (*models.Fund, error)
	ListFunds(ctx context.Context) ([]models.Fund, error)
	TopUpFund(ctx context.Context, id string, amount float64) error
	DeleteFund(ctx context.Context, id string) error
	CountFundExpenses(ctx context.Context, fundID string) (int, error)

	// Expense operations
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	ListExpenses(ctx context.Context, userID string) ([]models.ExpenseRow, error)

	// Approval workflow. Both run the status transition, any balance
	// mutation, and the audit entry in a single transaction.
	ApproveExpense(ctx context.Context, expenseID, approverID string) (*models.Expense, error)
	RejectExpense(ctx context.Context, expenseID, approverID string) (*models.Expense, error)

	// Audit log operations
	AppendAuditLog(ctx context.Context, entry *models.AuditLogEntry) error
	ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLogRow, error)

	// Reporting
	GetStats(ctx context.Context) (*models.Stats, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// uniqueViolation is the PostgreSQL error code for duplicate key values.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// User repository methods

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, name, email, password, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.Password, user.Role, user.CreatedAt)
	if isUniqueViolation(err) {
		return models.ErrDuplicateEmail
	}

	return err
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT * FROM users ORDER BY created_at`

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepository) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password = $1 WHERE id = $2`, passwordHash, id)
	return err
}

// CountUserRecords returns the number of expenses submitted by the user
// plus the number of funds they created. A user with records cannot be
// deleted without orphaning references.
func (r *PostgresRepository) CountUserRecords(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT (SELECT COUNT(*) FROM expenses WHERE user_id = $1)
		     + (SELECT COUNT(*) FROM funds WHERE created_by = $1)
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, err
	}

	return count, nil
}

// Fund repository methods

func (r *PostgresRepository) CreateFund(ctx context.Context, fund *models.Fund) error {
	if fund.ID == "" {
		fund.ID = uuid.New().String()
	}
	if fund.CreatedAt.IsZero() {
		fund.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO funds (id, fund_name, total_amount, remaining_amount, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		fund.ID, fund.FundName, fund.TotalAmount, fund.RemainingAmount,
		fund.CreatedBy, fund.CreatedAt)

	return err
}

func (r *PostgresRepository) GetFund(ctx context.Context, id string) (*models.Fund, error) {
	query := `SELECT * FROM funds WHERE id = $1`

	var fund models.Fund
	err := r.db.GetContext(ctx, &fund, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Fund not found
		}
		return nil, err
	}

	return &fund, nil
}

func (r *PostgresRepository) ListFunds(ctx context.Context) ([]models.Fund, error) {
	query := `SELECT * FROM funds ORDER BY created_at`

	var funds []models.Fund
	if err := r.db.SelectContext(ctx, &funds, query); err != nil {
		return nil, err
	}

	return funds, nil
}

// TopUpFund increments both the total and the remaining amount so the
// fund invariant 0 <= remaining <= total is preserved.
func (r *PostgresRepository) TopUpFund(ctx context.Context, id string, amount float64) error {
	query := `
		UPDATE funds
		SET total_amount = total_amount + $1, remaining_amount = remaining_amount + $1
		WHERE id = $2
	`

	res, err := r.db.ExecContext(ctx, query, amount, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrFundNotFound
	}

	return nil
}

func (r *PostgresRepository) DeleteFund(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM funds WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrFundNotFound
	}

	return nil
}

func (r *PostgresRepository) CountFundExpenses(ctx context.Context, fundID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM expenses WHERE fund_id = $1`, fundID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Expense repository methods

func (r *PostgresRepository) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Status == "" {
		expense.Status = models.StatusPending
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO expenses (id, user_id, fund_id, amount, category, description, receipt_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		expense.ID, expense.UserID, expense.FundID, expense.Amount,
		expense.Category, expense.Description, expense.ReceiptURL,
		expense.Status, expense.CreatedAt)

	return err
}

func (r *PostgresRepository) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	query := `SELECT * FROM expenses WHERE id = $1`

	var expense models.Expense
	err := r.db.GetContext(ctx, &expense, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Expense not found
		}
		return nil, err
	}

	return &expense, nil
}

func (r *PostgresRepository) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	query := `
		UPDATE expenses
		SET amount = $1, category = $2, description = $3, receipt_url = $4
		WHERE id = $5
	`

	_, err := r.db.ExecContext(ctx, query,
		expense.Amount, expense.Category, expense.Description,
		expense.ReceiptURL, expense.ID)

	return err
}

func (r *PostgresRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrExpenseNotFound
	}

	return nil
}

// ListExpenses returns expenses joined with requester and fund names,
// newest first. When userID is non-empty only that user's expenses are
// returned.
func (r *PostgresRepository) ListExpenses(ctx context.Context, userID string) ([]models.ExpenseRow, error) {
	query := `
		SELECT e.*, u.name AS employee_name, f.fund_name
		FROM expenses e
		JOIN users u ON e.user_id = u.id
		JOIN funds f ON e.fund_id = f.id
	`

	args := []interface{}{}
	if userID != "" {
		query += ` WHERE e.user_id = $1`
		args = append(args, userID)
	}

	query += ` ORDER BY e.created_at DESC`

	var rows []models.ExpenseRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	return rows, nil
}

// Approval workflow

// ApproveExpense performs the approval inside one transaction: the expense
// and fund rows are locked, the balance check runs against the locked fund,
// and the debit, the status transition, and the audit entry commit together
// or not at all. Locking both rows serializes concurrent approvals so two of
// them can never both pass the sufficiency check on a stale balance.
func (r *PostgresRepository) ApproveExpense(ctx context.Context, expenseID, approverID string) (*models.Expense, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var expense models.Expense
	err = tx.GetContext(ctx, &expense,
		`SELECT * FROM expenses WHERE id = $1 FOR UPDATE`, expenseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = models.ErrExpenseNotFound
		}
		return nil, err
	}

	if expense.Status != models.StatusPending {
		err = models.ErrAlreadyProcessed
		return nil, err
	}

	var fund models.Fund
	err = tx.GetContext(ctx, &fund,
		`SELECT * FROM funds WHERE id = $1 FOR UPDATE`, expense.FundID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = models.ErrFundNotFound
		}
		return nil, err
	}

	if fund.RemainingAmount < expense.Amount {
		err = models.ErrInsufficientFunds
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE funds SET remaining_amount = remaining_amount - $1 WHERE id = $2`,
		expense.Amount, fund.ID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE expenses SET status = $1, approved_by = $2 WHERE id = $3`,
		models.StatusApproved, approverID, expense.ID)
	if err != nil {
		return nil, err
	}

	err = appendAuditLogTx(ctx, tx, &models.AuditLogEntry{
		UserID:  sql.NullString{String: approverID, Valid: true},
		Action:  models.ActionExpenseApprove,
		Details: fmt.Sprintf("Approved expense ID %s of AED %.2f", expense.ID, expense.Amount),
	})
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	expense.Status = models.StatusApproved
	expense.ApprovedBy = sql.NullString{String: approverID, Valid: true}
	return &expense, nil
}

// RejectExpense records the rejection and its audit entry in one
// transaction. No balance change.
func (r *PostgresRepository) RejectExpense(ctx context.Context, expenseID, approverID string) (*models.Expense, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var expense models.Expense
	err = tx.GetContext(ctx, &expense,
		`SELECT * FROM expenses WHERE id = $1 FOR UPDATE`, expenseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = models.ErrExpenseNotFound
		}
		return nil, err
	}

	if expense.Status != models.StatusPending {
		err = models.ErrAlreadyProcessed
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE expenses SET status = $1, approved_by = $2 WHERE id = $3`,
		models.StatusRejected, approverID, expense.ID)
	if err != nil {
		return nil, err
	}

	err = appendAuditLogTx(ctx, tx, &models.AuditLogEntry{
		UserID:  sql.NullString{String: approverID, Valid: true},
		Action:  models.ActionExpenseReject,
		Details: fmt.Sprintf("Rejected expense ID %s", expense.ID),
	})
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	expense.Status = models.StatusRejected
	expense.ApprovedBy = sql.NullString{String: approverID, Valid: true}
	return &expense, nil
}

// Audit log repository methods

func appendAuditLogTx(ctx context.Context, tx *sqlx.Tx, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, details, created_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.UserID, entry.Action, entry.Details, entry.CreatedAt)

	return err
}

func (r *PostgresRepository) AppendAuditLog(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, details, created_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.UserID, entry.Action, entry.Details, entry.CreatedAt)

	return err
}

func (r *PostgresRepository) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLogRow, error) {
	query := `
		SELECT a.*, u.name AS user_name, u.email AS user_email
		FROM audit_logs a
		LEFT JOIN users u ON a.user_id = u.id
		ORDER BY a.created_at DESC
		LIMIT $1
	`

	var rows []models.AuditLogRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}

	return rows, nil
}

// Reporting

// GetStats recomputes the dashboard aggregates on demand.
func (r *PostgresRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{CategoryStats: []models.CategoryTotal{}}

	err := r.db.GetContext(ctx, &stats.TotalApprovedExpenses,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE status = 'approved'`)
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &stats.PendingRequests,
		`SELECT COUNT(*) FROM expenses WHERE status = 'pending'`)
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &stats.AvailableLiquidity,
		`SELECT COALESCE(SUM(remaining_amount), 0) FROM funds`)
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &stats.CategoryStats, `
		SELECT category, SUM(amount) AS total
		FROM expenses
		WHERE status = 'approved'
		GROUP BY category
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
