package payment

import (
	"context"
	"sync"
	"time"

	"carteirinha/pkg/platform/sentinel"
)

// GatewayStore persists gateway rows and the single-active invariant.
type GatewayStore interface {
	ListAll(ctx context.Context) ([]Gateway, error)
	FindByName(ctx context.Context, name string) (*Gateway, error)
	Active(ctx context.Context) (*Gateway, error)
	// SwitchActive atomically makes the named gateway the only active row.
	// Returns sentinel.ErrNotFound for unknown names and
	// sentinel.ErrInvalidState when the target is already active.
	SwitchActive(ctx context.Context, name string, now time.Time) error
}

// InMemoryGatewayStore backs tests and local development. SwitchActive runs
// under one lock so readers can never observe two active rows.
type InMemoryGatewayStore struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewInMemoryGatewayStore(gateways ...Gateway) *InMemoryGatewayStore {
	s := &InMemoryGatewayStore{gateways: make(map[string]Gateway)}
	for _, g := range gateways {
		s.gateways[g.Name] = g
	}
	return s
}

func (s *InMemoryGatewayStore) ListAll(_ context.Context) ([]Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Gateway, 0, len(s.gateways))
	for _, g := range s.gateways {
		out = append(out, g)
	}
	return out, nil
}

func (s *InMemoryGatewayStore) FindByName(_ context.Context, name string) (*Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.gateways[name]; ok {
		return &g, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryGatewayStore) Active(_ context.Context) (*Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.gateways {
		if g.IsActive {
			found := g
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryGatewayStore) SwitchActive(_ context.Context, name string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.gateways[name]
	if !ok {
		return sentinel.ErrNotFound
	}
	if target.IsActive {
		return sentinel.ErrInvalidState
	}
	for n, g := range s.gateways {
		wasActive := g.IsActive
		g.IsActive = n == name
		if g.IsActive != wasActive {
			g.UpdatedAt = now
		}
		s.gateways[n] = g
	}
	return nil
}
