package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/issuedesk/apiserver/internal/auth"
	"github.com/issuedesk/apiserver/internal/client/store"
	"github.com/issuedesk/apiserver/internal/server"
	"github.com/issuedesk/apiserver/internal/store/memory"
	"github.com/issuedesk/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

type fixture struct {
	authStore  *store.AuthStore
	issueStore *store.IssueStore
	notifier   *recordingNotifier
	auth       *AuthActions
	issues     *IssueActions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	ts := httptest.NewServer(server.NewRouter(server.Deps{
		Issues:     db.Issues(),
		Users:      db.Users(),
		Tokens:     auth.NewTokens("client-secret", time.Hour),
		BcryptCost: 4,
	}))
	t.Cleanup(ts.Close)

	api := NewAPI(ts.URL+"/api/", 5*time.Second)
	f := &fixture{
		authStore:  store.NewAuthStore(store.NewMemoryPersister()),
		issueStore: store.NewIssueStore(),
		notifier:   &recordingNotifier{},
	}
	f.auth = NewAuthActions(api, f.authStore, f.notifier)
	f.issues = NewIssueActions(api, f.authStore, f.issueStore, f.notifier)
	return f
}

func TestAuthActions_RegisterLoginLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Register(ctx, "Ada", "ada@example.com", "pw"))
	state := f.authStore.Snapshot()
	assert.True(t, state.IsAuthenticated)
	assert.NotEmpty(t, state.Token)
	require.NotNil(t, state.User)
	assert.Equal(t, "ada@example.com", state.User.Email)

	user, err := f.auth.Whoami(ctx)
	require.NoError(t, err)
	assert.Equal(t, *state.User, user)

	require.NoError(t, f.auth.Logout(ctx))
	assert.Equal(t, store.AuthState{}, f.authStore.Snapshot())

	require.NoError(t, f.auth.Login(ctx, "ada@example.com", "pw"))
	assert.True(t, f.authStore.Snapshot().IsAuthenticated)
	assert.Empty(t, f.notifier.all())
}

func TestAuthActions_FailuresNotifyAndReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.auth.Register(ctx, "Ada", "ada@example.com", "pw"))
	require.NoError(t, f.auth.Logout(ctx))

	err := f.auth.Register(ctx, "Eve", "ada@example.com", "pw")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	err = f.auth.Login(ctx, "ada@example.com", "wrong")
	require.ErrorAs(t, err, &apiErr)

	assert.Equal(t, []Notification{
		{Title: "Registration failed", Description: "Email already exists"},
		{Title: "Login failed", Description: "Invalid email or password!"},
	}, f.notifier.all())
	assert.False(t, f.authStore.Snapshot().IsAuthenticated)
}

func TestIssueActions_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.auth.Register(ctx, "Ada", "ada@example.com", "pw"))

	first, err := f.issues.Create(ctx, types.IssueInput{Title: "Bug A", Description: "crashes", Priority: types.IssuePriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, types.IssueStatusOpen, first.Status)
	second, err := f.issues.Create(ctx, types.IssueInput{Title: "Bug B", Description: "hangs"})
	require.NoError(t, err)
	assert.Equal(t, []types.Issue{second, first}, f.issueStore.Snapshot().Issues)

	resolved := types.IssueStatusResolved
	updated, err := f.issues.Update(ctx, first.ID, types.IssuePatch{Status: &resolved})
	require.NoError(t, err)
	assert.Equal(t, "Bug A", updated.Title)
	assert.Equal(t, types.IssueStatusResolved, f.issueStore.Snapshot().Issues[1].Status)

	require.NoError(t, f.issues.Delete(ctx, second.ID))
	assert.Equal(t, []types.Issue{updated}, f.issueStore.Snapshot().Issues)

	fresh := store.NewIssueStore()
	require.NoError(t, NewIssueActions(f.issues.api, f.authStore, fresh, nil).Fetch(ctx))
	assert.Equal(t, []types.Issue{updated}, fresh.Snapshot().Issues)
	assert.Empty(t, f.notifier.all())
}

func TestIssueActions_FailuresNotifyAndLeaveStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.issues.Create(ctx, types.IssueInput{Title: "t", Description: "d"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	require.NoError(t, f.auth.Register(ctx, "Ada", "ada@example.com", "pw"))
	_, err = f.issues.Update(ctx, "missing", types.IssuePatch{})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	err = f.issues.Delete(ctx, "missing")
	require.ErrorAs(t, err, &apiErr)

	assert.Empty(t, f.issueStore.Snapshot().Issues)
	assert.Equal(t, []Notification{
		{Title: "Issue create failed", Description: "unauthorized"},
		{Title: "Issue update failed", Description: "Issue not found"},
		{Title: "Issue delete failed", Description: "Issue not found"},
	}, f.notifier.all())
}

func TestIssueActions_FetchNonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	notifier := &recordingNotifier{}
	issues := store.NewIssueStore()
	issues.AddIssue(types.Issue{ID: "kept"})
	actions := NewIssueActions(NewAPI(ts.URL, time.Second), store.NewAuthStore(nil), issues, notifier)

	err := actions.Fetch(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream unavailable", apiErr.Detail)
	assert.Equal(t, []Notification{{Title: "Issue fetch failed", Description: "upstream unavailable"}}, notifier.all())
	assert.Len(t, issues.Snapshot().Issues, 1)
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "Issue not found (404)", (&APIError{Status: 404, Message: "Issue not found"}).Error())
	assert.Equal(t, "Server error (500): boom", (&APIError{Status: 500, Message: "Server error", Detail: "boom"}).Error())
	assert.Equal(t, "Bad Gateway (502)", (&APIError{Status: 502}).Error())
}
