// Package memory implements in-memory repositories for development and testing.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/issuedesk/apiserver/internal/store"
	"github.com/issuedesk/apiserver/types"
	"github.com/segmentio/ksuid"
)

// DB is an in-memory issue and user store.
type DB struct {
	mu     sync.Mutex
	issues []types.Issue
	users  []types.User
	now    func() time.Time
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source. Used by tests that need distinct timestamps.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.now = now
	return db
}

// --- issues ---

// Issues returns the issue repository view of the database.
func (db *DB) Issues() *IssueRepository {
	return &IssueRepository{db: db}
}

// Users returns the user repository view of the database.
func (db *DB) Users() *UserRepository {
	return &UserRepository{db: db}
}

// IssueRepository stores issues newest first.
type IssueRepository struct {
	db *DB
}

func (r *IssueRepository) List(ctx context.Context) ([]types.Issue, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]types.Issue, len(r.db.issues))
	copy(out, r.db.issues)
	return out, nil
}

func (r *IssueRepository) Get(ctx context.Context, id string) (types.Issue, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, issue := range r.db.issues {
		if issue.ID == id {
			return issue, nil
		}
	}
	return types.Issue{}, store.ErrNotFound
}

func (r *IssueRepository) Create(ctx context.Context, issue types.Issue) (types.Issue, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	issue.ID = ksuid.New().String()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	r.db.issues = append([]types.Issue{issue}, r.db.issues...)
	return issue, nil
}

func (r *IssueRepository) Update(ctx context.Context, issue types.Issue) (types.Issue, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i, current := range r.db.issues {
		if current.ID != issue.ID {
			continue
		}
		issue.CreatedAt = current.CreatedAt
		issue.UpdatedAt = r.db.now()
		r.db.issues[i] = issue
		return issue, nil
	}
	return types.Issue{}, store.ErrNotFound
}

func (r *IssueRepository) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i, issue := range r.db.issues {
		if issue.ID == id {
			r.db.issues = append(r.db.issues[:i:i], r.db.issues[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// --- users ---

// UserRepository enforces email uniqueness like the Postgres index does.
type UserRepository struct {
	db *DB
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, user := range r.db.users {
		if user.ID == id {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, user := range r.db.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrDuplicate
		}
	}

	now := r.db.now()
	user.ID = ksuid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.db.users = append(r.db.users, user)
	return user, nil
}
