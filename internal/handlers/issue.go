package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/issuedesk/apiserver/internal/services"
	"github.com/issuedesk/apiserver/internal/store"
	"github.com/issuedesk/apiserver/types"
	"go.uber.org/zap"
)

// IssueHandler provides HTTP handlers for issues.
type IssueHandler struct {
	issueService *services.IssueService
	logger       *zap.Logger
}

func NewIssueHandler(issueService *services.IssueService, logger *zap.Logger) *IssueHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueHandler{issueService: issueService, logger: logger}
}

// IssueRouter registers issue routes. Listing is public, mutations go
// through gate.
func IssueRouter(r chi.Router, issueService *services.IssueService, gate func(http.Handler) http.Handler, logger *zap.Logger) {
	handler := NewIssueHandler(issueService, logger)

	r.Get("/all", handler.ListIssues)
	r.Group(func(r chi.Router) {
		r.Use(gate)
		r.Post("/create", handler.CreateIssue)
		r.Put("/update", handler.UpdateIssue)
		r.Delete("/delete/{issueID}", handler.DeleteIssue)
	})
}

type IssueResponse struct {
	Message string      `json:"message"`
	Issue   types.Issue `json:"issue"`
}

type IssueListResponse struct {
	Message string        `json:"message"`
	Issue   []types.Issue `json:"issue"`
}

// UpdateIssueRequest carries the issue id next to the patched fields.
type UpdateIssueRequest struct {
	ID string `json:"id"`
	types.IssuePatch
}

func (h *IssueHandler) ListIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.issueService.List(r.Context())
	if err != nil {
		writeInternal(w, r, h.logger, "Server error", err)
		return
	}
	writeJSON(w, http.StatusOK, IssueListResponse{Message: "Issue fetched successfully", Issue: issues})
}

func (h *IssueHandler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	var input types.IssueInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	issue, err := h.issueService.Create(r.Context(), input)
	switch {
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeInternal(w, r, h.logger, "Error creating issue", err)
		return
	}
	writeJSON(w, http.StatusCreated, IssueResponse{Message: "Issue created successfully", Issue: issue})
}

func (h *IssueHandler) UpdateIssue(w http.ResponseWriter, r *http.Request) {
	var req UpdateIssueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	issue, err := h.issueService.Update(r.Context(), id, req.IssuePatch)
	if !h.checkMutation(w, r, err) {
		return
	}
	writeJSON(w, http.StatusCreated, IssueResponse{Message: "Issue updated successfully", Issue: issue})
}

func (h *IssueHandler) DeleteIssue(w http.ResponseWriter, r *http.Request) {
	err := h.issueService.Delete(r.Context(), chi.URLParam(r, "issueID"))
	if !h.checkMutation(w, r, err) {
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Issue deleted successfully"})
}

// checkMutation writes the error response for err and reports whether the
// handler may continue.
func (h *IssueHandler) checkMutation(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Issue not found")
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeInternal(w, r, h.logger, "Server error", err)
	}
	return false
}
