package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/mchen/wallet-backend/internal/api/testutils"
	"github.com/mchen/wallet-backend/internal/models"
	"github.com/mchen/wallet-backend/internal/service"
	"github.com/stretchr/testify/assert"
)

func createTransaction(
	t *testing.T,
	testCtx *testutils.TestContext,
	token string,
	req models.CreateTransactionRequest,
) *models.Transaction {
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/transactions", req,
		testutils.AuthHeaders(token))
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.TransactionResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Transaction)
	return resp.Transaction
}

func listTransactions(
	t *testing.T,
	testCtx *testutils.TestContext,
	token, userID, query string,
) []models.Transaction {
	w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/transactions/%s%s", userID, query), nil, testutils.AuthHeaders(token))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.TransactionListResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Transactions
}

func TestCreateTransaction(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	txn := createTransaction(t, testCtx, testCtx.TestUserJWT, models.CreateTransactionRequest{
		Amount:      -450,
		Category:    "groceries",
		Description: "weekly shop",
	})

	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, testCtx.TestUserID, txn.UserID, "owner comes from the token, not the body")
	assert.Equal(t, int64(-450), txn.Amount)
	assert.Equal(t, "groceries", txn.Category)
	assert.False(t, txn.CreatedAt.IsZero())
}

func TestCreateTransactionValidation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Zero amount
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/transactions",
		models.CreateTransactionRequest{Amount: 0, Category: "misc"},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "invalid_amount", errResp.Code)

	// Blank category
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/transactions",
		models.CreateTransactionRequest{Amount: 100, Category: "   "},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "missing_field", errResp.Code)

	// Nothing got persisted
	transactions := listTransactions(t, testCtx, testCtx.TestUserJWT, testCtx.TestUserID, "")
	assert.Empty(t, transactions)
}

func TestDeleteTransactionByOwner(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	txn := createTransaction(t, testCtx, testCtx.TestUserJWT, models.CreateTransactionRequest{
		Amount:   1200,
		Category: "salary",
	})

	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete,
		fmt.Sprintf("/api/transactions/%s", txn.ID), nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusOK, w.Code)

	transactions := listTransactions(t, testCtx, testCtx.TestUserJWT, testCtx.TestUserID, "")
	assert.Empty(t, transactions, "owner's list should be empty after the delete")
}

func TestDeleteTransactionOwnership(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	txn := createTransaction(t, testCtx, testCtx.TestUserJWT, models.CreateTransactionRequest{
		Amount:   -75,
		Category: "coffee",
	})

	_, otherToken := testutils.CreateTestUser(t, testCtx.Repository, testCtx.Authenticator,
		"otheruser@example.com")

	// A foreign id answers exactly like a missing one
	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete,
		fmt.Sprintf("/api/transactions/%s", txn.ID), nil, testutils.AuthHeaders(otherToken))
	assert.Equal(t, http.StatusNotFound, w.Code)

	wMissing := testutils.PerformRequest(testCtx.Router, http.MethodDelete,
		"/api/transactions/00000000-0000-0000-0000-000000000000", nil,
		testutils.AuthHeaders(otherToken))
	assert.Equal(t, http.StatusNotFound, wMissing.Code)
	assert.Equal(t, wMissing.Body.String(), w.Body.String(),
		"foreign and missing ids must be indistinguishable")

	// The record survived the foreign delete attempt
	transactions := listTransactions(t, testCtx, testCtx.TestUserJWT, testCtx.TestUserID, "")
	assert.Len(t, transactions, 1)
	assert.Equal(t, txn.ID, transactions[0].ID)
}

func TestListOtherUsersTransactionsForbidden(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	otherID, _ := testutils.CreateTestUser(t, testCtx.Repository, testCtx.Authenticator,
		"otheruser@example.com")

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/transactions/%s", otherID), nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/transactions/summary/%s", otherID), nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSummaryAggregation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	for _, amount := range []int64{500, -200, 300, -50} {
		createTransaction(t, testCtx, testCtx.TestUserJWT, models.CreateTransactionRequest{
			Amount:   amount,
			Category: "various",
		})
	}

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/transactions/summary/%s", testCtx.TestUserID), nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.SummaryResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(800), resp.Summary.Income)
	assert.Equal(t, int64(-250), resp.Summary.Expense)
	assert.Equal(t, int64(550), resp.Summary.Balance)
}

func TestSummaryReflectsEarlierCreate(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	createTransaction(t, testCtx, testCtx.TestUserJWT, models.CreateTransactionRequest{
		Amount:   999,
		Category: "bonus",
	})

	// The create's response has been produced, so the summary must see it
	w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/transactions/summary/%s", testCtx.TestUserID), nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.SummaryResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(999), resp.Summary.Balance)
}

func TestListEchoesEffectivePagination(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// No query parameters: the response reports the applied default
	w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/transactions/%s", testCtx.TestUserID), nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.TransactionListResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, service.DefaultPageSize, resp.Limit)
	assert.Equal(t, 0, resp.Offset)

	// Oversized and negative values are clamped, and the clamped values
	// are what the response echoes
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/transactions/%s?limit=99999&offset=-3", testCtx.TestUserID), nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, service.MaxPageSize, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
}

func TestListRoundTripAndPagination(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	const numTransactions = 5
	created := make(map[string]bool, numTransactions)
	for i := 0; i < numTransactions; i++ {
		txn := createTransaction(t, testCtx, testCtx.TestUserJWT, models.CreateTransactionRequest{
			Amount:   int64(100 * (i + 1)),
			Category: fmt.Sprintf("category-%d", i),
		})
		created[txn.ID] = true
	}

	// Full list: every created record, newest first
	full := listTransactions(t, testCtx, testCtx.TestUserJWT, testCtx.TestUserID, "")
	assert.Len(t, full, numTransactions)
	for _, txn := range full {
		assert.True(t, created[txn.ID], "unexpected transaction %s in listing", txn.ID)
	}
	for i := 0; i < len(full)-1; i++ {
		assert.False(t, full[i].CreatedAt.Before(full[i+1].CreatedAt),
			"transactions must be ordered by creation time descending")
	}

	// Paging through with any page size yields the same sequence
	var paged []models.Transaction
	for offset := 0; offset < numTransactions; offset += 2 {
		page := listTransactions(t, testCtx, testCtx.TestUserJWT, testCtx.TestUserID,
			fmt.Sprintf("?limit=2&offset=%d", offset))
		assert.LessOrEqual(t, len(page), 2)
		paged = append(paged, page...)
	}

	assert.Equal(t, len(full), len(paged))
	for i := range full {
		assert.Equal(t, full[i].ID, paged[i].ID, "pagination must not reorder records")
	}
}
