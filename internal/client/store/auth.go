package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/issuedesk/apiserver/types"
)

// AuthStorageKey is the key the session is persisted under.
const AuthStorageKey = "auth-storage"

// AuthState is the client session.
type AuthState struct {
	User            *types.UserSummary `json:"user"`
	Token           string             `json:"token"`
	IsAuthenticated bool               `json:"isAuthenticated"`
}

func (s AuthState) Login(user types.UserSummary, token string) AuthState {
	return AuthState{User: &user, Token: token, IsAuthenticated: true}
}

func (s AuthState) Logout() AuthState {
	return AuthState{}
}

func (s AuthState) SetUser(user types.UserSummary) AuthState {
	s.User = &user
	return s
}

// Persister stores opaque blobs by key. Load returns nil, nil for a missing key.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// persistedAuth is the on-disk envelope.
type persistedAuth struct {
	State   AuthState `json:"state"`
	Version int       `json:"version"`
}

// AuthStore holds the session and writes every change through its persister.
type AuthStore struct {
	mu        sync.RWMutex
	state     AuthState
	persister Persister
}

func NewAuthStore(persister Persister) *AuthStore {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	return &AuthStore{persister: persister}
}

// Load restores the persisted session. A missing entry yields a logged out state.
func (s *AuthStore) Load(ctx context.Context) error {
	data, err := s.persister.Load(ctx, AuthStorageKey)
	if err != nil {
		return err
	}

	var stored persistedAuth
	if data != nil {
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("decode %s: %w", AuthStorageKey, err)
		}
	}

	s.mu.Lock()
	s.state = stored.State
	s.mu.Unlock()
	return nil
}

func (s *AuthStore) Snapshot() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *AuthStore) Token() string {
	return s.Snapshot().Token
}

func (s *AuthStore) Login(ctx context.Context, user types.UserSummary, token string) error {
	return s.update(ctx, func(st AuthState) AuthState { return st.Login(user, token) })
}

func (s *AuthStore) Logout(ctx context.Context) error {
	return s.update(ctx, AuthState.Logout)
}

func (s *AuthStore) SetUser(ctx context.Context, user types.UserSummary) error {
	return s.update(ctx, func(st AuthState) AuthState { return st.SetUser(user) })
}

// update applies fn and persists the result. The in-memory state changes
// even when persisting fails.
func (s *AuthStore) update(ctx context.Context, fn func(AuthState) AuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = fn(s.state)
	data, err := json.Marshal(persistedAuth{State: s.state})
	if err != nil {
		return err
	}
	if err := s.persister.Save(ctx, AuthStorageKey, data); err != nil {
		return fmt.Errorf("persist %s: %w", AuthStorageKey, err)
	}
	return nil
}

// MemoryPersister keeps blobs in process.
type MemoryPersister struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{values: map[string][]byte{}}
}

func (p *MemoryPersister) Load(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	value, ok := p.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (p *MemoryPersister) Save(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = append([]byte(nil), value...)
	return nil
}
