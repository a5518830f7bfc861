package services

import (
	"context"
	"strings"

	"github.com/issuedesk/apiserver/internal/mq"
	"github.com/issuedesk/apiserver/types"
	"go.uber.org/zap"
)

// IssueRepository defines persistence operations for issues.
type IssueRepository interface {
	List(ctx context.Context) ([]types.Issue, error)
	Get(ctx context.Context, id string) (types.Issue, error)
	Create(ctx context.Context, issue types.Issue) (types.Issue, error)
	Update(ctx context.Context, issue types.Issue) (types.Issue, error)
	Delete(ctx context.Context, id string) error
}

// IssueArchiver keeps a copy of issues before they are deleted.
type IssueArchiver interface {
	ArchiveIssue(ctx context.Context, issue types.Issue) error
}

// IssueService encapsulates issue use-cases.
type IssueService struct {
	repo     IssueRepository
	archiver IssueArchiver
	events   EventPublisher
	logger   *zap.Logger
}

type IssueOption func(*IssueService)

// WithArchiver stores deleted issues before removal.
func WithArchiver(archiver IssueArchiver) IssueOption {
	return func(s *IssueService) { s.archiver = archiver }
}

func WithIssueEvents(events EventPublisher) IssueOption {
	return func(s *IssueService) {
		if events != nil {
			s.events = events
		}
	}
}

func WithIssueLogger(logger *zap.Logger) IssueOption {
	return func(s *IssueService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewIssueService(repo IssueRepository, opts ...IssueOption) *IssueService {
	s := &IssueService{
		repo:   repo,
		events: noopPublisher{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IssueService) List(ctx context.Context) ([]types.Issue, error) {
	return s.repo.List(ctx)
}

func (s *IssueService) Get(ctx context.Context, id string) (types.Issue, error) {
	return s.repo.Get(ctx, id)
}

func (s *IssueService) Create(ctx context.Context, input types.IssueInput) (types.Issue, error) {
	issue := types.Issue{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		Assignee:    input.Assignee,
	}
	if issue.Status == "" {
		issue.Status = types.IssueStatusOpen
	}
	if issue.Priority == "" {
		issue.Priority = types.IssuePriorityLow
	}
	if err := validateIssue(issue); err != nil {
		return types.Issue{}, err
	}

	created, err := s.repo.Create(ctx, issue)
	if err != nil {
		return types.Issue{}, err
	}
	s.events.Publish(ctx, mq.EventIssueCreated, created.ID, created)
	return created, nil
}

// Update merges patch into the stored issue. Absent fields keep their value.
func (s *IssueService) Update(ctx context.Context, id string, patch types.IssuePatch) (types.Issue, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Issue{}, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		patch.Description = &description
	}
	merged := patch.Apply(current)
	if err := validateIssue(merged); err != nil {
		return types.Issue{}, err
	}

	updated, err := s.repo.Update(ctx, merged)
	if err != nil {
		return types.Issue{}, err
	}
	s.events.Publish(ctx, mq.EventIssueUpdated, updated.ID, updated)
	return updated, nil
}

// Delete removes an issue permanently. With an archiver configured the issue
// is archived first and a failed archive aborts the delete.
func (s *IssueService) Delete(ctx context.Context, id string) error {
	issue, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.archiver != nil {
		if err := s.archiver.ArchiveIssue(ctx, issue); err != nil {
			s.logger.Error("archive issue", zap.String("id", id), zap.Error(err))
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Publish(ctx, mq.EventIssueDeleted, id, issue)
	return nil
}

func validateIssue(issue types.Issue) error {
	switch {
	case issue.Title == "":
		return validationError("title is required")
	case issue.Description == "":
		return validationError("description is required")
	case !issue.Status.Valid():
		return validationError("unknown status " + string(issue.Status))
	case !issue.Priority.Valid():
		return validationError("unknown priority " + string(issue.Priority))
	}
	return nil
}
