package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/issuedesk/apiserver/internal/auth"
	"github.com/issuedesk/apiserver/internal/services"
	"github.com/issuedesk/apiserver/internal/store/memory"
	"github.com/issuedesk/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	handler http.Handler
	tokens  *auth.Tokens
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db := memory.New().WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	})

	tokens := auth.NewTokens("handler-secret", auth.DefaultTokenTTL)
	authService := services.NewAuthService(db.Users(), tokens, services.WithBcryptCost(bcrypt.MinCost))
	issueService := services.NewIssueService(db.Issues())
	gate := RequireAuth(tokens)

	r := chi.NewRouter()
	r.Route("/api/user", func(r chi.Router) { AuthRouter(r, authService, gate, nil) })
	r.Route("/api/issue", func(r chi.Router) { IssueRouter(r, issueService, gate, nil) })
	return &testAPI{handler: r, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(t *testing.T, name, email, password string) AuthResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/user/register", "", RegisterRequest{Name: name, Email: email, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[AuthResponse](t, rec)
}

func (a *testAPI) listIssues(t *testing.T) []types.Issue {
	t.Helper()
	rec := a.do(t, http.MethodGet, "/api/issue/all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[IssueListResponse](t, rec).Issue
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegister(t *testing.T) {
	api := newTestAPI(t)

	resp := api.register(t, "Ada", "ada@example.com", "pw")
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.Equal(t, "Ada", resp.User.Name)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	subject, err := api.tokens.Subject(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, subject)
}

func TestRegister_DuplicateEmailKeepsFirstUser(t *testing.T) {
	api := newTestAPI(t)
	first := api.register(t, "Ada", "ada@example.com", "first")

	rec := api.do(t, http.MethodPost, "/api/user/register", "", RegisterRequest{Name: "Eve", Email: "ada@example.com", Password: "second"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", decode[ErrorResponse](t, rec).Message)

	rec = api.do(t, http.MethodPost, "/api/user/login", "", LoginRequest{Email: "ada@example.com", Password: "first"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, first.User, decode[AuthResponse](t, rec).User)
}

func TestRegister_BadInput(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/user/register", "", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/user/register", "", RegisterRequest{Email: "a@b.c", Password: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Message)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "Ada", "ada@example.com", "secret")

	wrongPassword := api.do(t, http.MethodPost, "/api/user/login", "", LoginRequest{Email: "ada@example.com", Password: "nope"})
	unknownEmail := api.do(t, http.MethodPost, "/api/user/login", "", LoginRequest{Email: "bob@example.com", Password: "secret"})

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	user := api.register(t, "Ada", "ada@example.com", "secret")

	rec := api.do(t, http.MethodGet, "/api/user/me", user.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.User, decode[MeResponse](t, rec).User)

	orphan, err := api.tokens.Issue("deleted-user")
	require.NoError(t, err)
	rec = api.do(t, http.MethodGet, "/api/user/me", orphan, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_RejectsBadTokens(t *testing.T) {
	api := newTestAPI(t)
	foreign, err := auth.NewTokens("other-secret", time.Hour).Issue("u1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage", "Bearer not-a-jwt"},
		{"foreign signature", "Bearer " + foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/issue/create", bytes.NewReader([]byte(`{"title":"t","description":"d"}`)))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			api.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"message":"unauthorized"}`, rec.Body.String())
		})
	}
	assert.Empty(t, api.listIssues(t))
}

func TestCreateIssue_Defaults(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "Ada", "ada@example.com", "pw").Token

	tests := []struct {
		name     string
		body     map[string]any
		status   types.IssueStatus
		priority types.IssuePriority
	}{
		{"omitted", map[string]any{"title": "t", "description": "d"}, types.IssueStatusOpen, types.IssuePriorityLow},
		{"supplied", map[string]any{"title": "t", "description": "d", "status": "Closed", "priority": "Medium"}, types.IssueStatusClosed, types.IssuePriorityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/issue/create", token, tt.body)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			resp := decode[IssueResponse](t, rec)
			assert.Equal(t, "Issue created successfully", resp.Message)
			assert.Equal(t, tt.status, resp.Issue.Status)
			assert.Equal(t, tt.priority, resp.Issue.Priority)
		})
	}
}

func TestCreateIssue_Validation(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "Ada", "ada@example.com", "pw").Token

	for _, body := range []string{
		`{"description":"d"}`,
		`{"title":"t"}`,
		`{"title":"t","description":"d","status":"Someday"}`,
		`not json`,
	} {
		rec := api.do(t, http.MethodPost, "/api/issue/create", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, api.listIssues(t))
}

func TestListIssues_EmptyIsArray(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/issue/all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Issue fetched successfully","issue":[]}`, rec.Body.String())
}

func TestUpdateIssue_MissingLeavesStoreUnchanged(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "Ada", "ada@example.com", "pw").Token
	api.do(t, http.MethodPost, "/api/issue/create", token, map[string]any{"title": "t", "description": "d"})
	before := api.listIssues(t)

	rec := api.do(t, http.MethodPut, "/api/issue/update", token, map[string]any{"id": "missing", "title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Issue not found", decode[ErrorResponse](t, rec).Message)
	assert.Equal(t, before, api.listIssues(t))

	rec = api.do(t, http.MethodPut, "/api/issue/update", token, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateIssue_ClearsAssignee(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "Ada", "ada@example.com", "pw").Token
	rec := api.do(t, http.MethodPost, "/api/issue/create", token, map[string]any{"title": "t", "description": "d", "assignee": "bob"})
	created := decode[IssueResponse](t, rec).Issue
	require.NotNil(t, created.Assignee)

	rec = api.do(t, http.MethodPut, "/api/issue/update", token, map[string]any{"id": created.ID, "priority": "High"})
	require.Equal(t, http.StatusCreated, rec.Code)
	kept := decode[IssueResponse](t, rec).Issue
	require.NotNil(t, kept.Assignee)
	assert.Equal(t, "bob", *kept.Assignee)

	rec = api.do(t, http.MethodPut, "/api/issue/update", token, `{"id":"`+created.ID+`","assignee":null}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	cleared := decode[IssueResponse](t, rec).Issue
	assert.Nil(t, cleared.Assignee)
	assert.Equal(t, types.IssuePriorityHigh, cleared.Priority)
}

func TestDeleteIssue_RemovesExactlyOne(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "Ada", "ada@example.com", "pw").Token
	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		rec := api.do(t, http.MethodPost, "/api/issue/create", token, map[string]any{"title": title, "description": "d"})
		ids = append(ids, decode[IssueResponse](t, rec).Issue.ID)
	}

	rec := api.do(t, http.MethodDelete, "/api/issue/delete/"+ids[1], token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Issue deleted successfully"}`, rec.Body.String())

	remaining := api.listIssues(t)
	require.Len(t, remaining, 2)
	assert.Equal(t, ids[2], remaining[0].ID)
	assert.Equal(t, ids[0], remaining[1].ID)

	rec = api.do(t, http.MethodDelete, "/api/issue/delete/"+ids[1], token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIssueLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "Ada", "ada@example.com", "pw").Token

	rec := api.do(t, http.MethodPost, "/api/issue/create", token, map[string]any{
		"title": "Bug A", "description": "crashes", "priority": "High",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[IssueResponse](t, rec).Issue
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.IssueStatusOpen, created.Status)
	assert.Equal(t, types.IssuePriorityHigh, created.Priority)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	rec = api.do(t, http.MethodPut, "/api/issue/update", token, map[string]any{
		"id": created.ID, "title": "Bug A", "description": "crashes", "status": "Resolved", "priority": "High",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	updated := decode[IssueResponse](t, rec).Issue
	assert.Equal(t, types.IssueStatusResolved, updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	rec = api.do(t, http.MethodDelete, "/api/issue/delete/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, issue := range api.listIssues(t) {
		assert.NotEqual(t, created.ID, issue.ID)
	}
}
