package store

import (
	"context"
	"sort"
	"sync"

	"carteirinha/internal/onboarding"
	id "carteirinha/pkg/domain"
	"carteirinha/pkg/platform/sentinel"
)

// In-memory stores back unit tests and local development. Each Execute holds
// the store mutex across validate and mutate, giving the same isolation the
// postgres stores get from row locks.

type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[id.ProfileID]onboarding.Profile
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[id.ProfileID]onboarding.Profile)}
}

func (s *InMemoryProfileStore) Save(_ context.Context, profile *onboarding.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = *profile
	return nil
}

func (s *InMemoryProfileStore) FindByID(_ context.Context, profileID id.ProfileID) (*onboarding.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[profileID]; ok {
		return &p, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryProfileStore) Execute(_ context.Context, profileID id.ProfileID,
	validate func(*onboarding.Profile) error,
	mutate func(*onboarding.Profile)) (*onboarding.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&p); err != nil {
		return nil, err
	}
	mutate(&p)
	s.profiles[profileID] = p
	return &p, nil
}

type InMemoryPaymentStore struct {
	mu       sync.RWMutex
	payments map[id.PaymentID]onboarding.Payment
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{payments: make(map[id.PaymentID]onboarding.Payment)}
}

func (s *InMemoryPaymentStore) Save(_ context.Context, payment *onboarding.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.ID] = *payment
	return nil
}

func (s *InMemoryPaymentStore) FindByID(_ context.Context, paymentID id.PaymentID) (*onboarding.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.payments[paymentID]; ok {
		return &p, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryPaymentStore) FindByGatewayCharge(_ context.Context, gateway, chargeID string) (*onboarding.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.Gateway == gateway && p.GatewayChargeID == chargeID {
			found := p
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryPaymentStore) ListByProfile(_ context.Context, profileID id.ProfileID) ([]onboarding.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []onboarding.Payment
	for _, p := range s.payments {
		if p.ProfileID == profileID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryPaymentStore) Execute(_ context.Context, paymentID id.PaymentID,
	validate func(*onboarding.Payment) error,
	mutate func(*onboarding.Payment)) (*onboarding.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&p); err != nil {
		return nil, err
	}
	mutate(&p)
	s.payments[paymentID] = p
	return &p, nil
}

type InMemoryDocumentStore struct {
	mu        sync.RWMutex
	documents map[id.DocumentID]onboarding.Document
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{documents: make(map[id.DocumentID]onboarding.Document)}
}

func (s *InMemoryDocumentStore) Save(_ context.Context, document *onboarding.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[document.ID] = *document
	return nil
}

func (s *InMemoryDocumentStore) FindByID(_ context.Context, documentID id.DocumentID) (*onboarding.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.documents[documentID]; ok {
		return &d, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryDocumentStore) ListByProfile(_ context.Context, profileID id.ProfileID) ([]onboarding.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []onboarding.Document
	for _, d := range s.documents {
		if d.ProfileID == profileID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryDocumentStore) Execute(_ context.Context, documentID id.DocumentID,
	validate func(*onboarding.Document) error,
	mutate func(*onboarding.Document)) (*onboarding.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[documentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&d); err != nil {
		return nil, err
	}
	mutate(&d)
	s.documents[documentID] = d
	return &d, nil
}

type InMemoryFaceValidationStore struct {
	mu       sync.RWMutex
	attempts map[id.ProfileID][]onboarding.FaceValidation
}

func NewInMemoryFaceValidationStore() *InMemoryFaceValidationStore {
	return &InMemoryFaceValidationStore{attempts: make(map[id.ProfileID][]onboarding.FaceValidation)}
}

func (s *InMemoryFaceValidationStore) Append(_ context.Context, attempt onboarding.FaceValidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ProfileID] = append(s.attempts[attempt.ProfileID], attempt)
	return nil
}

func (s *InMemoryFaceValidationStore) ListByProfile(_ context.Context, profileID id.ProfileID) ([]onboarding.FaceValidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]onboarding.FaceValidation, len(s.attempts[profileID]))
	copy(out, s.attempts[profileID])
	return out, nil
}

type InMemoryCardStore struct {
	mu    sync.RWMutex
	cards map[id.CardID]onboarding.Card
}

func NewInMemoryCardStore() *InMemoryCardStore {
	return &InMemoryCardStore{cards: make(map[id.CardID]onboarding.Card)}
}

func (s *InMemoryCardStore) CreateIfAbsent(_ context.Context, card *onboarding.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.ProfileID == card.ProfileID && c.Status == onboarding.CardActive {
			return sentinel.ErrConflict
		}
	}
	s.cards[card.ID] = *card
	return nil
}

func (s *InMemoryCardStore) FindByID(_ context.Context, cardID id.CardID) (*onboarding.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cards[cardID]; ok {
		return &c, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryCardStore) FindByProfile(_ context.Context, profileID id.ProfileID) (*onboarding.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cards {
		if c.ProfileID == profileID {
			found := c
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryCardStore) Execute(_ context.Context, cardID id.CardID,
	validate func(*onboarding.Card) error,
	mutate func(*onboarding.Card)) (*onboarding.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	mutate(&c)
	s.cards[cardID] = c
	return &c, nil
}
