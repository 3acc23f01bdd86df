package api_test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralnuaimi/petty-cash-server/internal/api/testutils"
	"github.com/ralnuaimi/petty-cash-server/internal/models"
)

// TestConcurrentApprovals fires many simultaneous status changes at one
// pending expense. Exactly one may succeed and the fund must be debited
// exactly once.
func TestConcurrentApprovals(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	fundID := createFund(t, testCtx, "Concurrent Fund", 1000)
	expenseID := submitExpense(t, testCtx, testCtx.Employee, fundID, 800)

	const numGoroutines = 10

	codes := make(chan int, numGoroutines)
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			w := testutils.PerformRequest(
				testCtx.Router,
				http.MethodPatch,
				fmt.Sprintf("/api/expenses/%s/status", expenseID),
				models.SetStatusRequest{Status: models.StatusApproved},
				testutils.AuthHeaders(testCtx.Accountant.Token),
			)
			codes <- w.Code
		}()
	}

	wg.Wait()
	close(codes)

	successes := 0
	for code := range codes {
		switch code {
		case http.StatusOK:
			successes++
		default:
			assert.Equal(t, http.StatusBadRequest, code, "losers must see ALREADY_PROCESSED")
		}
	}
	assert.Equal(t, 1, successes, "exactly one approval may win")

	// A single debit: 1000 - 800, never 1000 - 1600
	funds := listFunds(t, testCtx)
	require.Len(t, funds, 1)
	assert.Equal(t, 200.0, funds[0].RemainingAmount)
}

// TestConcurrentApprovalsSameFund approves two expenses whose sum exceeds
// the fund. One approval must fail the sufficiency check even when both
// requests race.
func TestConcurrentApprovalsSameFund(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	fundID := createFund(t, testCtx, "Race Fund", 1000)
	e1 := submitExpense(t, testCtx, testCtx.Employee, fundID, 700)
	e2 := submitExpense(t, testCtx, testCtx.Employee, fundID, 700)

	var wg sync.WaitGroup
	codes := make(chan int, 2)
	for _, id := range []string{e1, e2} {
		wg.Add(1)
		go func(expenseID string) {
			defer wg.Done()

			w := testutils.PerformRequest(
				testCtx.Router,
				http.MethodPatch,
				fmt.Sprintf("/api/expenses/%s/status", expenseID),
				models.SetStatusRequest{Status: models.StatusApproved},
				testutils.AuthHeaders(testCtx.Accountant.Token),
			)
			codes <- w.Code
		}(id)
	}

	wg.Wait()
	close(codes)

	successes := 0
	for code := range codes {
		if code == http.StatusOK {
			successes++
		}
	}
	assert.Equal(t, 1, successes, "the fund cannot cover both expenses")

	funds := listFunds(t, testCtx)
	require.Len(t, funds, 1)
	assert.Equal(t, 300.0, funds[0].RemainingAmount, "exactly one 700 debit")
	assert.GreaterOrEqual(t, funds[0].RemainingAmount, 0.0)
}
