package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ralnuaimi/petty-cash-server/internal/models"
	"github.com/ralnuaimi/petty-cash-server/internal/repository"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	ChangePassword(ctx context.Context, actor models.Identity, req models.ChangePasswordRequest) error

	// User management
	ListUsers(ctx context.Context, actor models.Identity) ([]models.User, error)
	CreateUser(ctx context.Context, actor models.Identity, req models.RegisterRequest) (*models.User, error)
	DeleteUser(ctx context.Context, actor models.Identity, userID string) error

	// Fund ledger
	ListFunds(ctx context.Context, actor models.Identity) ([]models.Fund, error)
	CreateFund(ctx context.Context, actor models.Identity, req models.CreateFundRequest) (*models.Fund, error)
	TopUpFund(ctx context.Context, actor models.Identity, fundID string, req models.TopUpRequest) error
	DeleteFund(ctx context.Context, actor models.Identity, fundID string) error

	// Expense ledger and approval workflow
	ListExpenses(ctx context.Context, actor models.Identity) ([]models.ExpenseResponse, error)
	SubmitExpense(ctx context.Context, actor models.Identity, req models.SubmitExpenseRequest, receiptURL string) (*models.Expense, error)
	EditExpense(ctx context.Context, actor models.Identity, expenseID string, req models.EditExpenseRequest, receiptURL string) error
	DeleteExpense(ctx context.Context, actor models.Identity, expenseID string) error
	SetExpenseStatus(ctx context.Context, actor models.Identity, expenseID, status string) error

	// Reporting and audit
	GetStats(ctx context.Context, actor models.Identity) (*models.Stats, error)
	ListAuditLogs(ctx context.Context, actor models.Identity, limit int) ([]models.AuditLogResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	jwtSecret     []byte
	tokenDuration time.Duration
	log           zerolog.Logger
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string, tokenDuration time.Duration, log zerolog.Logger) Service {
	return &DefaultService{
		repo:          repo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: tokenDuration,
		log:           log,
	}
}

// Authentication methods

func (s *DefaultService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	user, err := s.createUser(ctx, req)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, models.ActionUserRegister,
		fmt.Sprintf("New user %s registered as %s", user.Email, user.Role))

	return &models.AuthResponse{
		Status: "success",
		User:   identityOf(user),
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	// Unknown email and wrong password produce the same error so the
	// response does not leak which of the two failed.
	if user == nil {
		return nil, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	s.audit(ctx, user.ID, models.ActionLogin, fmt.Sprintf("User %s logged in", user.Email))

	return &models.AuthResponse{
		Status:    "success",
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
		User:      identityOf(user),
	}, nil
}

func (s *DefaultService) ChangePassword(ctx context.Context, actor models.Identity, req models.ChangePasswordRequest) error {
	if err := authorize(actor, ActionChangePassword); err != nil {
		return err
	}

	user, err := s.repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return models.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return models.ErrIncorrectPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if err := s.repo.UpdateUserPassword(ctx, user.ID, string(hashed)); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	s.audit(ctx, user.ID, models.ActionPasswordChange,
		fmt.Sprintf("User %s changed their password", user.Email))

	return nil
}

// User management

func (s *DefaultService) ListUsers(ctx context.Context, actor models.Identity) ([]models.User, error) {
	if err := authorize(actor, ActionManageUsers); err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	return users, nil
}

func (s *DefaultService) CreateUser(ctx context.Context, actor models.Identity, req models.RegisterRequest) (*models.User, error) {
	if err := authorize(actor, ActionManageUsers); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, req)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor.ID, models.ActionUserCreate,
		fmt.Sprintf("Created user %s with role %s", user.Email, user.Role))

	return user, nil
}

func (s *DefaultService) DeleteUser(ctx context.Context, actor models.Identity, userID string) error {
	if err := authorize(actor, ActionManageUsers); err != nil {
		return err
	}

	if userID == actor.ID {
		return models.ErrSelfDelete
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return models.ErrUserNotFound
	}

	// Deleting a user with submitted expenses or created funds would
	// leave dangling references, so it is refused.
	count, err := s.repo.CountUserRecords(ctx, userID)
	if err != nil {
		return fmt.Errorf("error counting user records: %w", err)
	}
	if count > 0 {
		return models.ErrHasDependents
	}

	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}

	s.audit(ctx, actor.ID, models.ActionUserDelete,
		fmt.Sprintf("Deleted user %s", user.Email))

	return nil
}

// Fund ledger

func (s *DefaultService) ListFunds(ctx context.Context, actor models.Identity) ([]models.Fund, error) {
	if err := authorize(actor, ActionViewFunds); err != nil {
		return nil, err
	}

	funds, err := s.repo.ListFunds(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing funds: %w", err)
	}

	return funds, nil
}

func (s *DefaultService) CreateFund(ctx context.Context, actor models.Identity, req models.CreateFundRequest) (*models.Fund, error) {
	if err := authorize(actor, ActionManageFunds); err != nil {
		return nil, err
	}

	fund := &models.Fund{
		ID:              uuid.New().String(),
		FundName:        req.FundName,
		TotalAmount:     req.TotalAmount,
		RemainingAmount: req.TotalAmount,
		CreatedBy:       actor.ID,
	}

	if err := s.repo.CreateFund(ctx, fund); err != nil {
		return nil, fmt.Errorf("error creating fund: %w", err)
	}

	s.audit(ctx, actor.ID, models.ActionFundCreate,
		fmt.Sprintf("Created fund %s with AED %.2f", fund.FundName, fund.TotalAmount))

	return fund, nil
}

func (s *DefaultService) TopUpFund(ctx context.Context, actor models.Identity, fundID string, req models.TopUpRequest) error {
	if err := authorize(actor, ActionManageFunds); err != nil {
		return err
	}

	if err := s.repo.TopUpFund(ctx, fundID, req.Amount); err != nil {
		return err
	}

	s.audit(ctx, actor.ID, models.ActionFundTopUp,
		fmt.Sprintf("Topped up fund ID %s with AED %.2f", fundID, req.Amount))

	return nil
}

func (s *DefaultService) DeleteFund(ctx context.Context, actor models.Identity, fundID string) error {
	if err := authorize(actor, ActionManageFunds); err != nil {
		return err
	}

	fund, err := s.repo.GetFund(ctx, fundID)
	if err != nil {
		return fmt.Errorf("error getting fund: %w", err)
	}
	if fund == nil {
		return models.ErrFundNotFound
	}

	// Refuse to orphan expenses that still reference this fund.
	count, err := s.repo.CountFundExpenses(ctx, fundID)
	if err != nil {
		return fmt.Errorf("error counting fund expenses: %w", err)
	}
	if count > 0 {
		return models.ErrHasDependents
	}

	if err := s.repo.DeleteFund(ctx, fundID); err != nil {
		return fmt.Errorf("error deleting fund: %w", err)
	}

	s.audit(ctx, actor.ID, models.ActionFundDelete,
		fmt.Sprintf("Deleted fund %s", fund.FundName))

	return nil
}

// Expense ledger and approval workflow

func (s *DefaultService) ListExpenses(ctx context.Context, actor models.Identity) ([]models.ExpenseResponse, error) {
	// Employees only see their own expenses.
	filterUserID := ""
	if !allowed(actor, ActionViewAllExpenses) {
		filterUserID = actor.ID
	}

	rows, err := s.repo.ListExpenses(ctx, filterUserID)
	if err != nil {
		return nil, fmt.Errorf("error listing expenses: %w", err)
	}

	out := make([]models.ExpenseResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, expenseResponseOf(row))
	}

	return out, nil
}

func (s *DefaultService) SubmitExpense(ctx context.Context, actor models.Identity, req models.SubmitExpenseRequest, receiptURL string) (*models.Expense, error) {
	if err := authorize(actor, ActionSubmitExpense); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		ID:          uuid.New().String(),
		UserID:      actor.ID,
		FundID:      req.FundID,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Status:      models.StatusPending,
	}
	if receiptURL != "" {
		expense.ReceiptURL = sql.NullString{String: receiptURL, Valid: true}
	}

	// Fund sufficiency is deliberately not checked here; it is enforced
	// at approval time against the balance current at that moment.
	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("error creating expense: %w", err)
	}

	s.audit(ctx, actor.ID, models.ActionExpenseSubmit,
		fmt.Sprintf("Submitted expense of AED %.2f for %s", expense.Amount, expense.Category))

	return expense, nil
}

func (s *DefaultService) EditExpense(ctx context.Context, actor models.Identity, expenseID string, req models.EditExpenseRequest, receiptURL string) error {
	expense, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("error getting expense: %w", err)
	}
	if expense == nil {
		return models.ErrExpenseNotFound
	}

	// Only the original requester may edit, and only while pending.
	if expense.UserID != actor.ID {
		return models.ErrForbidden
	}
	if expense.Status != models.StatusPending {
		return models.ErrNotPending
	}

	expense.Amount = req.Amount
	expense.Category = req.Category
	expense.Description = req.Description
	if receiptURL != "" {
		expense.ReceiptURL = sql.NullString{String: receiptURL, Valid: true}
	}

	if err := s.repo.UpdateExpense(ctx, expense); err != nil {
		return fmt.Errorf("error updating expense: %w", err)
	}

	s.audit(ctx, actor.ID, models.ActionExpenseEdit,
		fmt.Sprintf("Edited expense ID %s", expenseID))

	return nil
}

func (s *DefaultService) DeleteExpense(ctx context.Context, actor models.Identity, expenseID string) error {
	expense, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("error getting expense: %w", err)
	}
	if expense == nil {
		return models.ErrExpenseNotFound
	}

	isAdmin := actor.Role == models.RoleAdmin
	if expense.UserID != actor.ID && !isAdmin {
		return models.ErrForbidden
	}
	// Admins may force-delete processed expenses; owners may not.
	if expense.Status != models.StatusPending && !isAdmin {
		return models.ErrNotPending
	}

	if err := s.repo.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("error deleting expense: %w", err)
	}

	s.audit(ctx, actor.ID, models.ActionExpenseDelete,
		fmt.Sprintf("Deleted expense ID %s", expenseID))

	return nil
}

// SetExpenseStatus transitions a pending expense to approved or rejected.
// The approval path (balance check, debit, status change, audit entry) is a
// single atomic unit inside the repository.
func (s *DefaultService) SetExpenseStatus(ctx context.Context, actor models.Identity, expenseID, status string) error {
	if err := authorize(actor, ActionProcessExpense); err != nil {
		return err
	}

	switch status {
	case models.StatusApproved:
		_, err := s.repo.ApproveExpense(ctx, expenseID, actor.ID)
		return err
	case models.StatusRejected:
		_, err := s.repo.RejectExpense(ctx, expenseID, actor.ID)
		return err
	default:
		return fmt.Errorf("invalid status %q", status)
	}
}

// Reporting and audit

func (s *DefaultService) GetStats(ctx context.Context, actor models.Identity) (*models.Stats, error) {
	if err := authorize(actor, ActionViewStats); err != nil {
		return nil, err
	}

	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("error computing stats: %w", err)
	}

	return stats, nil
}

func (s *DefaultService) ListAuditLogs(ctx context.Context, actor models.Identity, limit int) ([]models.AuditLogResponse, error) {
	if err := authorize(actor, ActionViewAuditLogs); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.repo.ListAuditLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing audit logs: %w", err)
	}

	out := make([]models.AuditLogResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, auditLogResponseOf(row))
	}

	return out, nil
}

// Helper methods

func (s *DefaultService) createUser(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if !models.ValidRole(req.Role) {
		return nil, models.ErrForbidden
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     req.Role,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// audit appends an entry to the trail. Outside the approval transaction a
// failed audit insert must not fail the business operation that already
// happened, so the error is only logged.
func (s *DefaultService) audit(ctx context.Context, actorID, action, details string) {
	entry := &models.AuditLogEntry{
		Action:  action,
		Details: details,
	}
	if actorID != "" {
		entry.UserID = sql.NullString{String: actorID, Valid: true}
	}

	if err := s.repo.AppendAuditLog(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("failed to append audit log")
	}
}

func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role,
		"name":  user.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenDuration).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func identityOf(user *models.User) models.Identity {
	return models.Identity{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}

func expenseResponseOf(row models.ExpenseRow) models.ExpenseResponse {
	resp := models.ExpenseResponse{
		ID:           row.ID,
		UserID:       row.UserID,
		FundID:       row.FundID,
		Amount:       row.Amount,
		Category:     row.Category,
		Description:  row.Description,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt.Format(time.RFC3339),
		EmployeeName: row.EmployeeName,
		FundName:     row.FundName,
	}
	if row.ReceiptURL.Valid {
		resp.ReceiptURL = &row.ReceiptURL.String
	}
	if row.ApprovedBy.Valid {
		resp.ApprovedBy = &row.ApprovedBy.String
	}
	return resp
}

func auditLogResponseOf(row models.AuditLogRow) models.AuditLogResponse {
	resp := models.AuditLogResponse{
		ID:        row.ID,
		Action:    row.Action,
		Details:   row.Details,
		CreatedAt: row.CreatedAt.Format(time.RFC3339),
	}
	if row.UserID.Valid {
		resp.UserID = &row.UserID.String
	}
	if row.UserName.Valid {
		resp.UserName = &row.UserName.String
	}
	if row.UserEmail.Valid {
		resp.UserEmail = &row.UserEmail.String
	}
	return resp
}
