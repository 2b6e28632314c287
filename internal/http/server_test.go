package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"tally/internal/auth"
	"tally/internal/services"
	"tally/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "tally_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	tokens := auth.NewTokenService("test-secret")
	authSvc := services.NewAuthService(repo, tokens)
	ledgerSvc := services.NewLedgerService(repo, nil)
	return NewServer(":0", authSvc, ledgerSvc, tokens)
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	decode(t, rec, &resp)
	return resp.Message
}

func signupBody(username, email string) map[string]any {
	return map[string]any{
		"username": username,
		"name":     "Test User",
		"email":    email,
		"password": "hunter22",
	}
}

// signup registers a user and returns its token.
func signup(t *testing.T, s *Server, username, email string) string {
	t.Helper()
	rec := doRequest(t, s, http.MethodPost, "/signup", "", signupBody(username, email))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func incomeBody() map[string]any {
	return map[string]any{
		"title":    "Salary",
		"amount":   "2500.00",
		"category": "Job",
		"date":     "2024-03-01",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignup(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/signup", "", signupBody("alice", "alice@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := rec.Body.String()
	assert.NotContains(t, body, "passwordHash")
	assert.NotContains(t, body, "password_hash")

	var resp struct {
		User struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.User.ID)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.Token)
}

func TestSignupDuplicates(t *testing.T) {
	s := newTestServer(t)
	signup(t, s, "alice", "alice@example.com")

	rec := doRequest(t, s, http.MethodPost, "/signup", "", signupBody("bob", "alice@example.com"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", message(t, rec))

	rec = doRequest(t, s, http.MethodPost, "/signup", "", signupBody("alice", "bob@example.com"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already exists", message(t, rec))

	// Both conflicting reports the email first.
	rec = doRequest(t, s, http.MethodPost, "/signup", "", signupBody("alice", "alice@example.com"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", message(t, rec))
}

func TestSignupMissingFields(t *testing.T) {
	s := newTestServer(t)

	body := signupBody("alice", "alice@example.com")
	body["password"] = ""
	rec := doRequest(t, s, http.MethodPost, "/signup", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	signup(t, s, "alice", "alice@example.com")

	for _, identifier := range []string{"alice", "alice@example.com"} {
		rec := doRequest(t, s, http.MethodPost, "/login", "", map[string]any{
			"emailOrUsername": identifier,
			"password":        "hunter22",
		})
		assert.Equal(t, http.StatusOK, rec.Code, identifier)
	}
}

func TestLoginFailuresAreIdentical(t *testing.T) {
	s := newTestServer(t)
	signup(t, s, "alice", "alice@example.com")

	wrongPass := doRequest(t, s, http.MethodPost, "/login", "", map[string]any{
		"emailOrUsername": "alice", "password": "wrong",
	})
	unknown := doRequest(t, s, http.MethodPost, "/login", "", map[string]any{
		"emailOrUsername": "nobody", "password": "hunter22",
	})

	assert.Equal(t, http.StatusBadRequest, wrongPass.Code)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, wrongPass.Body.String(), unknown.Body.String())
}

func TestAuthGuard(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/get-incomes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied. No token provided.", message(t, rec))

	rec = doRequest(t, s, http.MethodGet, "/get-incomes", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", message(t, rec))

	// Token signed with a different secret is rejected the same way.
	other := auth.NewTokenService("other-secret")
	foreign, err := other.Issue("some-user")
	require.NoError(t, err)
	rec = doRequest(t, s, http.MethodGet, "/get-incomes", foreign, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", message(t, rec))
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	rec := doRequest(t, s, http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	decode(t, rec, &user)
	assert.Equal(t, "alice", user.Username)

	rec = doRequest(t, s, http.MethodPut, "/profile", token, map[string]any{
		"username": "alice2", "name": "Alice B", "email": "alice2@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &user)
	assert.Equal(t, "alice2", user.Username)
	assert.Equal(t, "alice2@example.com", user.Email)
}

func TestProfilePartialUpdate(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	var user struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Email    string `json:"email"`
	}

	// Name alone updates without touching the other fields.
	rec := doRequest(t, s, http.MethodPut, "/profile", token, map[string]any{
		"name": "Alice Renamed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &user)
	assert.Equal(t, "Alice Renamed", user.Name)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)

	// Omitting the name keeps the stored value.
	rec = doRequest(t, s, http.MethodPut, "/profile", token, map[string]any{
		"username": "alice2", "email": "alice2@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, s, http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &user)
	assert.Equal(t, "Alice Renamed", user.Name)
	assert.Equal(t, "alice2", user.Username)

	// A supplied-but-blank field is rejected.
	rec = doRequest(t, s, http.MethodPut, "/profile", token, map[string]any{
		"name": "  ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", message(t, rec))
}

func TestProfileConflict(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")
	signup(t, s, "bob", "bob@example.com")

	rec := doRequest(t, s, http.MethodPut, "/profile", token, map[string]any{
		"username": "alice", "name": "Alice", "email": "bob@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", message(t, rec))
}

func TestUpdatePassword(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	rec := doRequest(t, s, http.MethodPut, "/password", token, map[string]any{
		"currentPassword": "wrong", "newPassword": "newpassword",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Old password still works after the failed attempt.
	rec = doRequest(t, s, http.MethodPost, "/login", "", map[string]any{
		"emailOrUsername": "alice", "password": "hunter22",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodPut, "/password", token, map[string]any{
		"currentPassword": "hunter22", "newPassword": "newpassword",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password updated successfully", message(t, rec))

	rec = doRequest(t, s, http.MethodPost, "/login", "", map[string]any{
		"emailOrUsername": "alice", "password": "newpassword",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateProfilePicture(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	pic := "data:image/png;base64,iVBORw0KGgo="
	rec := doRequest(t, s, http.MethodPut, "/profile-picture", token, map[string]any{
		"profilePicture": pic,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var user struct {
		ProfilePicture *string `json:"profilePicture"`
	}
	decode(t, rec, &user)
	require.NotNil(t, user.ProfilePicture)
	assert.Equal(t, pic, *user.ProfilePicture)

	rec = doRequest(t, s, http.MethodPut, "/profile-picture", token, map[string]any{
		"profilePicture": nil,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &user)
	assert.Nil(t, user.ProfilePicture)
}

func TestAddIncome(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	rec := doRequest(t, s, http.MethodPost, "/add-income", token, incomeBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message     string `json:"message"`
		Transaction struct {
			ID     int64   `json:"id"`
			Amount float64 `json:"amount"`
		} `json:"transaction"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "Income Added", resp.Message)
	assert.NotZero(t, resp.Transaction.ID)
	assert.Equal(t, 2500.0, resp.Transaction.Amount)
}

func TestAddIncomeAcceptsNumericAmount(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	body := incomeBody()
	body["amount"] = 99.95
	rec := doRequest(t, s, http.MethodPost, "/add-income", token, body)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAddIncomeValidation(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	tests := []struct {
		name    string
		mutate  func(map[string]any)
		wantMsg string
	}{
		{"empty title", func(b map[string]any) { b["title"] = " " }, "All fields are required"},
		{"zero amount", func(b map[string]any) { b["amount"] = "0" }, "Amount must be a positive number"},
		{"negative amount", func(b map[string]any) { b["amount"] = -5 }, "Amount must be a positive number"},
		{"non-numeric amount", func(b map[string]any) { b["amount"] = "abc" }, "Amount must be a positive number"},
		{"bad date", func(b map[string]any) { b["date"] = "soon" }, "Invalid date format"},
		{"missing category", func(b map[string]any) { delete(b, "category") }, "All fields are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := incomeBody()
			tt.mutate(body)
			rec := doRequest(t, s, http.MethodPost, "/add-income", token, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, message(t, rec))
		})
	}
}

func TestAddExpenseRequiresCategory(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	body := incomeBody()
	delete(body, "category")
	rec := doRequest(t, s, http.MethodPost, "/add-expense", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", message(t, rec))

	// Nothing was stored.
	rec = doRequest(t, s, http.MethodGet, "/get-expenses", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []any
	decode(t, rec, &list)
	assert.Empty(t, list)
}

func TestListIncomesNewestFirst(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	for _, title := range []string{"X", "Y", "Z"} {
		body := incomeBody()
		body["title"] = title
		rec := doRequest(t, s, http.MethodPost, "/add-income", token, body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, s, http.MethodGet, "/get-incomes", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []struct {
		Title string `json:"title"`
	}
	decode(t, rec, &list)
	require.Len(t, list, 3)
	assert.Equal(t, "Z", list[0].Title)
	assert.Equal(t, "Y", list[1].Title)
	assert.Equal(t, "X", list[2].Title)
}

func TestLedgersAreIsolatedBetweenUsers(t *testing.T) {
	s := newTestServer(t)
	alice := signup(t, s, "alice", "alice@example.com")
	bob := signup(t, s, "bob", "bob@example.com")

	rec := doRequest(t, s, http.MethodPost, "/add-income", alice, incomeBody())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/get-incomes", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []any
	decode(t, rec, &list)
	assert.Empty(t, list)
}

func TestDeleteIncome(t *testing.T) {
	s := newTestServer(t)
	alice := signup(t, s, "alice", "alice@example.com")
	bob := signup(t, s, "bob", "bob@example.com")

	rec := doRequest(t, s, http.MethodPost, "/add-income", alice, incomeBody())
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Transaction struct {
			ID int64 `json:"id"`
		} `json:"transaction"`
	}
	decode(t, rec, &resp)

	// Bob cannot delete Alice's income; the record survives.
	rec = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/delete-income/%d", resp.Transaction.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Income not found", message(t, rec))

	rec = doRequest(t, s, http.MethodGet, "/get-incomes", alice, nil)
	var list []any
	decode(t, rec, &list)
	assert.Len(t, list, 1)

	rec = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/delete-income/%d", resp.Transaction.ID), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Income Deleted", message(t, rec))

	rec = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/delete-income/%d", resp.Transaction.ID), alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteExpenseBadID(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	rec := doRequest(t, s, http.MethodDelete, "/delete-expense/abc", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Expense not found", message(t, rec))
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)
	token := signup(t, s, "alice", "alice@example.com")

	income := incomeBody()
	income["amount"] = "100"
	rec := doRequest(t, s, http.MethodPost, "/add-income", token, income)
	require.Equal(t, http.StatusOK, rec.Code)

	expense := incomeBody()
	expense["amount"] = "40.50"
	rec = doRequest(t, s, http.MethodPost, "/add-expense", token, expense)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sum struct {
		TotalIncome  float64 `json:"totalIncome"`
		TotalExpense float64 `json:"totalExpense"`
		Balance      float64 `json:"balance"`
	}
	decode(t, rec, &sum)
	assert.Equal(t, 100.0, sum.TotalIncome)
	assert.Equal(t, 40.5, sum.TotalExpense)
	assert.Equal(t, 59.5, sum.Balance)
}
