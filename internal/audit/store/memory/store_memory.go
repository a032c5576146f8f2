package memory

import (
	"context"
	"sort"
	"sync"

	"carteirinha/internal/audit"
	id "carteirinha/pkg/domain"
)

// Store keeps audit actions in memory for tests and local development.
type Store struct {
	mu      sync.RWMutex
	actions []audit.Action
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, action audit.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	return nil
}

func (s *Store) ListByProfile(_ context.Context, profileID id.ProfileID) ([]audit.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Action
	for _, a := range s.actions {
		if a.TargetProfile == profileID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]audit.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Action, len(s.actions))
	copy(out, s.actions)
	// ULIDs sort lexicographically by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns every recorded action in insertion order. Test helper.
func (s *Store) All() []audit.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Action, len(s.actions))
	copy(out, s.actions)
	return out
}
