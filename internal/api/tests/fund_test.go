package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralnuaimi/petty-cash-server/internal/api/testutils"
	"github.com/ralnuaimi/petty-cash-server/internal/models"
)

func createFund(t *testing.T, testCtx *testutils.TestContext, name string, total float64) string {
	t.Helper()

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/funds",
		models.CreateFundRequest{FundName: name, TotalAmount: total},
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.CreatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestFundManagement(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Only admins create funds
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/funds",
		models.CreateFundRequest{FundName: "Rogue Fund", TotalAmount: 100},
		testutils.AuthHeaders(testCtx.Employee.Token),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)

	fundID := createFund(t, testCtx, "Office Fund", 500)

	// Every authenticated role can list funds
	for _, user := range []testutils.TestUser{testCtx.Admin, testCtx.Accountant, testCtx.Employee} {
		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/funds",
			nil,
			testutils.AuthHeaders(user.Token),
		)
		assert.Equal(t, http.StatusOK, w.Code, "role %s should list funds", user.Role)

		var funds []models.Fund
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &funds))
		require.Len(t, funds, 1)
		assert.Equal(t, 500.0, funds[0].TotalAmount)
		assert.Equal(t, 500.0, funds[0].RemainingAmount)
	}

	// Top-up raises both amounts
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPatch,
		fmt.Sprintf("/api/funds/%s/topup", fundID),
		models.TopUpRequest{Amount: 250},
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/funds",
		nil,
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	var funds []models.Fund
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &funds))
	require.Len(t, funds, 1)
	assert.Equal(t, 750.0, funds[0].TotalAmount)
	assert.Equal(t, 750.0, funds[0].RemainingAmount)

	// Zero and negative top-ups are rejected
	for _, amount := range []float64{0, -50} {
		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodPatch,
			fmt.Sprintf("/api/funds/%s/topup", fundID),
			map[string]float64{"amount": amount},
			testutils.AuthHeaders(testCtx.Admin.Token),
		)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	// Missing fund
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPatch,
		"/api/funds/00000000-0000-0000-0000-000000000000/topup",
		models.TopUpRequest{Amount: 10},
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteFund(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	fundID := createFund(t, testCtx, "Doomed Fund", 100)

	// An expense referencing the fund blocks deletion
	w := testutils.PerformFormRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/expenses",
		map[string]string{
			"fundId":   fundID,
			"amount":   "25",
			"category": "Travel",
		},
		testutils.AuthHeaders(testCtx.Employee.Token),
	)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.CreatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodDelete,
		"/api/funds/"+fundID,
		nil,
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	assert.Equal(t, http.StatusConflict, w.Code)

	// After the expense goes away the fund can be deleted
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodDelete,
		"/api/expenses/"+created.ID,
		nil,
		testutils.AuthHeaders(testCtx.Employee.Token),
	)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodDelete,
		"/api/funds/"+fundID,
		nil,
		testutils.AuthHeaders(testCtx.Admin.Token),
	)
	assert.Equal(t, http.StatusOK, w.Code)
}
