package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

var _ driven.SessionStore = (*MockSessionStore)(nil)

// MockSessionStore keeps analyst sessions in memory, keyed by session ID.
// Token lookups scan the map.
type MockSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMockSessionStore creates an empty store
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{sessions: make(map[string]*domain.Session)}
}

func (m *MockSessionStore) Save(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *MockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	return m.find(func(s *domain.Session) bool { return s.ID == id })
}

func (m *MockSessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return m.find(func(s *domain.Session) bool { return s.Token == token })
}

func (m *MockSessionStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return m.find(func(s *domain.Session) bool { return s.RefreshToken != "" && s.RefreshToken == refreshToken })
}

func (m *MockSessionStore) Delete(ctx context.Context, id string) error {
	m.remove(func(s *domain.Session) bool { return s.ID == id })
	return nil
}

func (m *MockSessionStore) DeleteByToken(ctx context.Context, token string) error {
	m.remove(func(s *domain.Session) bool { return s.Token == token })
	return nil
}

func (m *MockSessionStore) DeleteByUser(ctx context.Context, userID string) error {
	m.remove(func(s *domain.Session) bool { return s.UserID == userID })
	return nil
}

func (m *MockSessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSessionStore) find(match func(*domain.Session) bool) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if match(s) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
}

func (m *MockSessionStore) remove(match func(*domain.Session) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if match(s) {
			delete(m.sessions, id)
		}
	}
}

// Reset drops every session, as if they had all been revoked
func (m *MockSessionStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.sessions)
}

// Count returns the number of stored sessions
func (m *MockSessionStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
