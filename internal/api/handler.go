package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ralnuaimi/petty-cash-server/internal/models"
	"github.com/ralnuaimi/petty-cash-server/internal/service"
	"github.com/ralnuaimi/petty-cash-server/internal/storage"
)

// Handler wires HTTP requests to the service layer
type Handler struct {
	svc      service.Service
	receipts *storage.ReceiptStore
	log      zerolog.Logger
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service, receipts *storage.ReceiptStore, log zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		receipts: receipts,
		log:      log,
	}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	// Receipts are immutable files served by path
	router.Static("/uploads", h.receipts.Dir())

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware())
	{
		protected.GET("/users", h.ListUsers)
		protected.POST("/users", h.CreateUser)
		protected.DELETE("/users/:id", h.DeleteUser)
		protected.PATCH("/users/me/password", h.ChangePassword)

		protected.GET("/funds", h.ListFunds)
		protected.POST("/funds", h.CreateFund)
		protected.PATCH("/funds/:id/topup", h.TopUpFund)
		protected.DELETE("/funds/:id", h.DeleteFund)

		protected.GET("/expenses", h.ListExpenses)
		protected.POST("/expenses", h.SubmitExpense)
		protected.PATCH("/expenses/:id", h.EditExpense)
		protected.DELETE("/expenses/:id", h.DeleteExpense)
		protected.PATCH("/expenses/:id/status", h.SetExpenseStatus)

		protected.GET("/stats", h.GetStats)
		protected.GET("/audit-logs", h.ListAuditLogs)
	}
}

// Auth handlers

func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), currentIdentity(c), req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Status: "success"})
}

// User handlers

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context(), currentIdentity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), currentIdentity(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreatedResponse{Status: "success", ID: user.ID})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.svc.DeleteUser(c.Request.Context(), currentIdentity(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Status: "success"})
}

// Fund handlers

func (h *Handler) ListFunds(c *gin.Context) {
	funds, err := h.svc.ListFunds(c.Request.Context(), currentIdentity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, funds)
}

func (h *Handler) CreateFund(c *gin.Context) {
	var req models.CreateFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	fund, err := h.svc.CreateFund(c.Request.Context(), currentIdentity(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreatedResponse{Status: "success", ID: fund.ID})
}

func (h *Handler) TopUpFund(c *gin.Context) {
	var req models.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	if err := h.svc.TopUpFund(c.Request.Context(), currentIdentity(c), c.Param("id"), req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Status: "success"})
}

func (h *Handler) DeleteFund(c *gin.Context) {
	if err := h.svc.DeleteFund(c.Request.Context(), currentIdentity(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Status: "success"})
}

// Expense handlers

func (h *Handler) ListExpenses(c *gin.Context) {
	expenses, err := h.svc.ListExpenses(c.Request.Context(), currentIdentity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, expenses)
}

func (h *Handler) SubmitExpense(c *gin.Context) {
	var req models.SubmitExpenseRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	receiptURL, err := h.saveReceipt(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	expense, err := h.svc.SubmitExpense(c.Request.Context(), currentIdentity(c), req, receiptURL)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreatedResponse{Status: "success", ID: expense.ID})
}

func (h *Handler) EditExpense(c *gin.Context) {
	var req models.EditExpenseRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	receiptURL, err := h.saveReceipt(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.svc.EditExpense(c.Request.Context(), currentIdentity(c), c.Param("id"), req, receiptURL); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Status: "success"})
}

func (h *Handler) DeleteExpense(c *gin.Context) {
	if err := h.svc.DeleteExpense(c.Request.Context(), currentIdentity(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Status: "success"})
}

func (h *Handler) SetExpenseStatus(c *gin.Context) {
	var req models.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	if err := h.svc.SetExpenseStatus(c.Request.Context(), currentIdentity(c), c.Param("id"), req.Status); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Status: "success"})
}

// Reporting and audit handlers

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context(), currentIdentity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListAuditLogs(c *gin.Context) {
	logs, err := h.svc.ListAuditLogs(c.Request.Context(), currentIdentity(c), 100)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

// Helpers

// saveReceipt stores the optional "receipt" multipart file and returns its
// URL path, or "" when no file was sent.
func (h *Handler) saveReceipt(c *gin.Context) (string, error) {
	file, err := c.FormFile("receipt")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}

	return h.receipts.Save(file)
}

func (h *Handler) respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: err.Error(),
	})
}

// respondError maps a service error to its terminal HTTP response.
func (h *Handler) respondError(c *gin.Context, err error) {
	code := "INTERNAL_ERROR"
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, models.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrFundNotFound),
		errors.Is(err, models.ErrExpenseNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrDuplicateEmail):
		status, code = http.StatusConflict, "DUPLICATE_EMAIL"
	case errors.Is(err, models.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, models.ErrIncorrectPassword):
		status, code = http.StatusBadRequest, "INCORRECT_PASSWORD"
	case errors.Is(err, models.ErrInsufficientFunds):
		status, code = http.StatusBadRequest, "INSUFFICIENT_FUNDS"
	case errors.Is(err, models.ErrAlreadyProcessed):
		status, code = http.StatusBadRequest, "ALREADY_PROCESSED"
	case errors.Is(err, models.ErrNotPending):
		status, code = http.StatusBadRequest, "INVALID_STATE"
	case errors.Is(err, models.ErrSelfDelete):
		status, code = http.StatusBadRequest, "SELF_DELETE"
	case errors.Is(err, models.ErrHasDependents):
		status, code = http.StatusConflict, "HAS_DEPENDENTS"
	}

	if status == http.StatusInternalServerError {
		// Log the real cause, return a generic message.
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
		c.JSON(status, models.ErrorResponse{
			Status:  "error",
			Code:    code,
			Message: "Internal server error",
		})
		return
	}

	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: err.Error(),
	})
}
