package client

import (
	"context"
	"errors"

	"github.com/issuedesk/apiserver/internal/client/store"
	"github.com/issuedesk/apiserver/types"
)

// Notification is a short user facing message about a failed action.
type Notification struct {
	Title       string
	Description string
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// notifyFailure reports err under title and hands it back to the caller.
func notifyFailure(notifier Notifier, title string, err error) error {
	if notifier != nil {
		notifier.Notify(Notification{Title: title, Description: describe(err, title)})
	}
	return err
}

func describe(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Message != "":
			return apiErr.Message
		case apiErr.Detail != "":
			return apiErr.Detail
		}
		return fallback
	}
	if err != nil {
		return err.Error()
	}
	return fallback
}

// AuthActions signs users in and out and keeps the auth store current.
type AuthActions struct {
	api      *API
	auth     *store.AuthStore
	notifier Notifier
}

func NewAuthActions(api *API, auth *store.AuthStore, notifier Notifier) *AuthActions {
	return &AuthActions{api: api, auth: auth, notifier: notifier}
}

func (a *AuthActions) Register(ctx context.Context, name, email, password string) error {
	resp, err := a.api.Register(ctx, name, email, password)
	if err != nil {
		return notifyFailure(a.notifier, "Registration failed", err)
	}
	if err := a.auth.Login(ctx, resp.User, resp.Token); err != nil {
		return notifyFailure(a.notifier, "Registration failed", err)
	}
	return nil
}

func (a *AuthActions) Login(ctx context.Context, email, password string) error {
	resp, err := a.api.Login(ctx, email, password)
	if err != nil {
		return notifyFailure(a.notifier, "Login failed", err)
	}
	if err := a.auth.Login(ctx, resp.User, resp.Token); err != nil {
		return notifyFailure(a.notifier, "Login failed", err)
	}
	return nil
}

func (a *AuthActions) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return notifyFailure(a.notifier, "Logout failed", err)
	}
	return nil
}

// Whoami refreshes the stored user from the API.
func (a *AuthActions) Whoami(ctx context.Context) (types.UserSummary, error) {
	user, err := a.api.Me(ctx, a.auth.Token())
	if err != nil {
		return types.UserSummary{}, notifyFailure(a.notifier, "Session check failed", err)
	}
	if err := a.auth.SetUser(ctx, user); err != nil {
		return types.UserSummary{}, notifyFailure(a.notifier, "Session check failed", err)
	}
	return user, nil
}

// IssueActions performs issue calls with the stored token and reconciles the
// results into the issue store.
type IssueActions struct {
	api      *API
	auth     *store.AuthStore
	issues   *store.IssueStore
	notifier Notifier
}

func NewIssueActions(api *API, auth *store.AuthStore, issues *store.IssueStore, notifier Notifier) *IssueActions {
	return &IssueActions{api: api, auth: auth, issues: issues, notifier: notifier}
}

func (a *IssueActions) Fetch(ctx context.Context) error {
	issues, err := a.api.ListIssues(ctx)
	if err != nil {
		return notifyFailure(a.notifier, "Issue fetch failed", err)
	}
	a.issues.SetIssues(issues)
	return nil
}

func (a *IssueActions) Create(ctx context.Context, input types.IssueInput) (types.Issue, error) {
	issue, err := a.api.CreateIssue(ctx, a.auth.Token(), input)
	if err != nil {
		return types.Issue{}, notifyFailure(a.notifier, "Issue create failed", err)
	}
	a.issues.AddIssue(issue)
	return issue, nil
}

func (a *IssueActions) Update(ctx context.Context, id string, patch types.IssuePatch) (types.Issue, error) {
	issue, err := a.api.UpdateIssue(ctx, a.auth.Token(), id, patch)
	if err != nil {
		return types.Issue{}, notifyFailure(a.notifier, "Issue update failed", err)
	}
	a.issues.UpdateIssue(issue.ID, issue)
	return issue, nil
}

func (a *IssueActions) Delete(ctx context.Context, id string) error {
	if err := a.api.DeleteIssue(ctx, a.auth.Token(), id); err != nil {
		return notifyFailure(a.notifier, "Issue delete failed", err)
	}
	a.issues.DeleteIssue(id)
	return nil
}
