package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralnuaimi/petty-cash-server/internal/api/testutils"
	"github.com/ralnuaimi/petty-cash-server/internal/models"
)

func TestUserManagement(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Listing users is admin-only
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/users",
		nil,
		testutils.AuthHeaders(testCtx.Employee.Token),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/users",
		nil,
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var users []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 3)
	// Password hashes never leave the API
	assert.NotContains(t, w.Body.String(), "password")

	// Admin creates a user
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/users",
		models.RegisterRequest{
			Name:     "Created By Admin",
			Email:    "created@example.com",
			Password: "password123",
			Role:     models.RoleAccountant,
		},
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.CreatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Admin cannot delete themselves
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodDelete,
		"/api/users/"+testCtx.Admin.ID,
		nil,
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Deleting the fresh user works
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodDelete,
		"/api/users/"+created.ID,
		nil,
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditTrail(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	fundID := createFund(t, testCtx, "Audited Fund", 500)
	expenseID := submitExpense(t, testCtx, testCtx.Employee, fundID, 100)
	res := setStatus(t, testCtx, testCtx.Accountant, expenseID, models.StatusApproved)
	require.Equal(t, http.StatusOK, res.Code)

	// Audit log is admin-only
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/audit-logs",
		nil,
		testutils.AuthHeaders(testCtx.Accountant.Token),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/audit-logs",
		nil,
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var logs []models.AuditLogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))

	actions := make(map[string]bool)
	for _, entry := range logs {
		actions[entry.Action] = true
	}
	assert.True(t, actions[models.ActionFundCreate])
	assert.True(t, actions[models.ActionExpenseSubmit])
	assert.True(t, actions[models.ActionExpenseApprove])
}

func TestStatsEndpoint(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	fundID := createFund(t, testCtx, "Stats Fund", 1000)

	approved := submitExpense(t, testCtx, testCtx.Employee, fundID, 300)
	res := setStatus(t, testCtx, testCtx.Accountant, approved, models.StatusApproved)
	require.Equal(t, http.StatusOK, res.Code)

	submitExpense(t, testCtx, testCtx.Employee, fundID, 50) // pending

	// Stats are visible to every role
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/stats",
		nil,
		testutils.AuthHeaders(testCtx.Employee.Token),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 300.0, stats.TotalApprovedExpenses)
	assert.Equal(t, 1, stats.PendingRequests)
	assert.Equal(t, 700.0, stats.AvailableLiquidity)
	require.Len(t, stats.CategoryStats, 1)
	assert.Equal(t, "Office Supplies", stats.CategoryStats[0].Category)
	assert.Equal(t, 300.0, stats.CategoryStats[0].Total)
}
