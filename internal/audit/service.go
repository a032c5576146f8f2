package audit

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"

	id "carteirinha/pkg/domain"
	"carteirinha/pkg/requestcontext"
)

// Store persists audit actions. Append-only by contract.
type Store interface {
	Append(ctx context.Context, action Action) error
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]Action, error)
	ListRecent(ctx context.Context, limit int) ([]Action, error)
}

// Publisher fans an action out to an external sink (Kafka). Publishing is
// best-effort; the store write is the authoritative record.
type Publisher interface {
	Publish(ctx context.Context, action Action)
}

// Service captures structured audit actions. It uses the store for
// persistence so tests can swap sinks easily.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

func NewService(store Store, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, publisher: publisher, logger: logger}
}

// Record assigns an id and timestamp, persists the action, and fans it out.
// The persisted action is returned so callers can hand it back to clients.
func (s *Service) Record(ctx context.Context, action Action) (Action, error) {
	if action.ID == "" {
		action.ID = ulid.Make().String()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = requestcontext.Now(ctx)
	}
	if action.RequestID == "" {
		action.RequestID = requestcontext.RequestID(ctx)
	}

	if err := s.store.Append(ctx, action); err != nil {
		return Action{}, err
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, action)
	}
	return action, nil
}

// ListByProfile returns the trail for one applicant.
func (s *Service) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]Action, error) {
	return s.store.ListByProfile(ctx, profileID)
}

// ListRecent returns the N newest actions for the staff console.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Action, error) {
	return s.store.ListRecent(ctx, limit)
}
