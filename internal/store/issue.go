package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/issuedesk/apiserver/types"
	"github.com/jmoiron/sqlx"
	"github.com/segmentio/ksuid"
)

// IssueRepository handles persistence for issues.
type IssueRepository struct {
	db *sqlx.DB
}

func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

func (r *IssueRepository) List(ctx context.Context) ([]types.Issue, error) {
	const query = `
		SELECT id, title, description, status, priority, assignee, created_at, updated_at
		FROM issues
		ORDER BY created_at DESC, id DESC`
	issues := make([]types.Issue, 0)
	if err := r.db.SelectContext(ctx, &issues, query); err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *IssueRepository) Get(ctx context.Context, id string) (types.Issue, error) {
	const query = `
		SELECT id, title, description, status, priority, assignee, created_at, updated_at
		FROM issues
		WHERE id = $1`
	var issue types.Issue
	if err := r.db.GetContext(ctx, &issue, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Issue{}, ErrNotFound
		}
		return types.Issue{}, err
	}
	return issue, nil
}

func (r *IssueRepository) Create(ctx context.Context, issue types.Issue) (types.Issue, error) {
	now := time.Now().UTC()
	issue.ID = ksuid.New().String()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	const query = `
		INSERT INTO issues (id, title, description, status, priority, assignee, created_at, updated_at)
		VALUES (:id, :title, :description, :status, :priority, :assignee, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, issue); err != nil {
		return types.Issue{}, err
	}
	return issue, nil
}

func (r *IssueRepository) Update(ctx context.Context, issue types.Issue) (types.Issue, error) {
	issue.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE issues
		SET title = :title,
			description = :description,
			status = :status,
			priority = :priority,
			assignee = :assignee,
			updated_at = :updated_at
		WHERE id = :id
		RETURNING created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, issue)
	if err != nil {
		return types.Issue{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return types.Issue{}, err
		}
		return types.Issue{}, ErrNotFound
	}
	if err := rows.Scan(&issue.CreatedAt); err != nil {
		return types.Issue{}, err
	}
	return issue, rows.Err()
}

func (r *IssueRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM issues WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
