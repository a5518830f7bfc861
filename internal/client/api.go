// Package client talks to the issuedesk HTTP API and keeps the local stores
// in sync with it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/issuedesk/apiserver/types"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s", msg, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", msg, e.Status)
}

type AuthResponse struct {
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    types.UserSummary `json:"user"`
}

type userResponse struct {
	Message string            `json:"message"`
	User    types.UserSummary `json:"user"`
}

type issueResponse struct {
	Message string      `json:"message"`
	Issue   types.Issue `json:"issue"`
}

type issueListResponse struct {
	Message string        `json:"message"`
	Issue   []types.Issue `json:"issue"`
}

type updateIssueRequest struct {
	ID string `json:"id"`
	types.IssuePatch
}

// API is a thin client for the /api routes.
type API struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPI returns a client for baseURL, e.g. http://localhost:8080/api.
func NewAPI(baseURL string, timeout time.Duration) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (a *API) Register(ctx context.Context, name, email, password string) (AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	err := a.do(ctx, http.MethodPost, "/user/register", "", body, &out)
	return out, err
}

func (a *API) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	err := a.do(ctx, http.MethodPost, "/user/login", "", body, &out)
	return out, err
}

func (a *API) Me(ctx context.Context, token string) (types.UserSummary, error) {
	var out userResponse
	err := a.do(ctx, http.MethodGet, "/user/me", token, nil, &out)
	return out.User, err
}

func (a *API) ListIssues(ctx context.Context) ([]types.Issue, error) {
	var out issueListResponse
	err := a.do(ctx, http.MethodGet, "/issue/all", "", nil, &out)
	return out.Issue, err
}

func (a *API) CreateIssue(ctx context.Context, token string, input types.IssueInput) (types.Issue, error) {
	var out issueResponse
	err := a.do(ctx, http.MethodPost, "/issue/create", token, input, &out)
	return out.Issue, err
}

func (a *API) UpdateIssue(ctx context.Context, token, id string, patch types.IssuePatch) (types.Issue, error) {
	var out issueResponse
	err := a.do(ctx, http.MethodPut, "/issue/update", token, updateIssueRequest{ID: id, IssuePatch: patch}, &out)
	return out.Issue, err
}

func (a *API) DeleteIssue(ctx context.Context, token, id string) error {
	return a.do(ctx, http.MethodDelete, "/issue/delete/"+url.PathEscape(id), token, nil, nil)
}

func (a *API) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = strings.TrimSpace(body.Message)
		apiErr.Detail = body.Error
		return apiErr
	}
	apiErr.Detail = strings.TrimSpace(string(data))
	return apiErr
}
