package models

// Request models
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=admin accountant employee"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

type CreateFundRequest struct {
	FundName    string  `json:"fundName" binding:"required"`
	TotalAmount float64 `json:"totalAmount" binding:"required,gt=0"`
}

type TopUpRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// SubmitExpenseRequest arrives as multipart form data so a receipt file can
// ride along with the fields.
type SubmitExpenseRequest struct {
	FundID      string  `form:"fundId" binding:"required"`
	Amount      float64 `form:"amount" binding:"required,gt=0"`
	Category    string  `form:"category" binding:"required"`
	Description string  `form:"description"`
}

type EditExpenseRequest struct {
	Amount      float64 `form:"amount" binding:"required,gt=0"`
	Category    string  `form:"category" binding:"required"`
	Description string  `form:"description"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

// Response models
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AuthResponse struct {
	Status    string   `json:"status"`
	Token     string   `json:"token,omitempty"`
	ExpiresIn int      `json:"expiresIn,omitempty"`
	User      Identity `json:"user"`
}

type CreatedResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type SuccessResponse struct {
	Status string `json:"status"`
}

// ExpenseResponse is the JSON shape of a listed expense. Nullable columns
// are flattened to optional fields.
type ExpenseResponse struct {
	ID           string  `json:"id"`
	UserID       string  `json:"userId"`
	FundID       string  `json:"fundId"`
	Amount       float64 `json:"amount"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	ReceiptURL   *string `json:"receiptUrl,omitempty"`
	Status       string  `json:"status"`
	ApprovedBy   *string `json:"approvedBy,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	EmployeeName string  `json:"employeeName"`
	FundName     string  `json:"fundName"`
}

type AuditLogResponse struct {
	ID        string  `json:"id"`
	UserID    *string `json:"userId,omitempty"`
	UserName  *string `json:"userName,omitempty"`
	UserEmail *string `json:"userEmail,omitempty"`
	Action    string  `json:"action"`
	Details   string  `json:"details"`
	CreatedAt string  `json:"createdAt"`
}
