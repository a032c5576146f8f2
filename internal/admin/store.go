package admin

import (
	"context"
	"strings"
	"sync"

	id "carteirinha/pkg/domain"
	"carteirinha/pkg/platform/sentinel"
)

// Store persists staff accounts.
type Store interface {
	Save(ctx context.Context, a *Admin) error
	FindByID(ctx context.Context, adminID id.AdminID) (*Admin, error)
	FindByEmail(ctx context.Context, email string) (*Admin, error)
	// Execute atomically validates then mutates an account.
	Execute(ctx context.Context, adminID id.AdminID,
		validate func(*Admin) error,
		mutate func(*Admin)) (*Admin, error)
}

// InMemoryStore backs tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	admins map[id.AdminID]Admin
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{admins: make(map[id.AdminID]Admin)}
}

func (s *InMemoryStore) Save(_ context.Context, a *Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[a.ID] = *a
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, adminID id.AdminID) (*Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.admins[adminID]; ok {
		return &a, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.admins {
		if strings.EqualFold(a.Email, email) {
			found := a
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Execute(_ context.Context, adminID id.AdminID,
	validate func(*Admin) error,
	mutate func(*Admin)) (*Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[adminID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&a); err != nil {
		return nil, err
	}
	mutate(&a)
	s.admins[adminID] = a
	return &a, nil
}
