package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/issuedesk/apiserver/internal/auth"
	"github.com/issuedesk/apiserver/internal/mq"
	"github.com/issuedesk/apiserver/internal/store"
	"github.com/issuedesk/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	Token string            `json:"token"`
	User  types.UserSummary `json:"user"`
}

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	repo       UserRepository
	tokens     *auth.Tokens
	bcryptCost int
	events     EventPublisher

	// unknownHash is compared against when the email has no account so both
	// login failures cost one bcrypt round.
	unknownOnce sync.Once
	unknownHash []byte
}

func NewAuthService(repo UserRepository, tokens *auth.Tokens, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:       repo,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		events:     noopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AuthOption func(*AuthService)

// WithBcryptCost overrides the hashing cost. Out of range values are ignored.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func WithAuthEvents(events EventPublisher) AuthOption {
	return func(s *AuthService) {
		if events != nil {
			s.events = events
		}
	}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return AuthResult{}, validationError("name, email and password are required")
	}

	_, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return AuthResult{}, ErrDuplicateEmail
	case !errors.Is(err, store.ErrNotFound):
		return AuthResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return AuthResult{}, ErrDuplicateEmail
	}
	if err != nil {
		return AuthResult{}, err
	}

	result, err := s.issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	s.events.Publish(ctx, mq.EventUserRegistered, user.ID, result.User)
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(password))
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	s.events.Publish(ctx, mq.EventUserLoggedIn, user.ID, result.User)
	return result, nil
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (types.UserSummary, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.UserSummary{}, err
	}
	return user.Summary(), nil
}

func (s *AuthService) issue(user types.User) (AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Token: token, User: user.Summary()}, nil
}

func (s *AuthService) placeholderHash() []byte {
	s.unknownOnce.Do(func() {
		s.unknownHash, _ = bcrypt.GenerateFromPassword([]byte("issuedesk-no-such-user"), s.bcryptCost)
	})
	return s.unknownHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
