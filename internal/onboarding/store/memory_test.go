package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"carteirinha/internal/onboarding"
	id "carteirinha/pkg/domain"
	"carteirinha/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) TestProfileStore() {
	store := NewInMemoryProfileStore()
	profileID := id.ProfileID(uuid.New())

	s.Run("find on empty store returns ErrNotFound", func() {
		_, err := store.FindByID(s.ctx, profileID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("save then find returns a copy", func() {
		p := &onboarding.Profile{ID: profileID, Name: "Ana"}
		s.Require().NoError(store.Save(s.ctx, p))

		found, err := store.FindByID(s.ctx, profileID)
		s.Require().NoError(err)
		s.Equal("Ana", found.Name)

		// Mutating the returned copy must not leak into the store.
		found.Name = "changed"
		again, err := store.FindByID(s.ctx, profileID)
		s.Require().NoError(err)
		s.Equal("Ana", again.Name)
	})

	s.Run("execute applies validate then mutate atomically", func() {
		updated, err := store.Execute(s.ctx, profileID,
			func(p *onboarding.Profile) error {
				if p.TermsAccepted {
					return errors.New("already accepted")
				}
				return nil
			},
			func(p *onboarding.Profile) { p.TermsAccepted = true },
		)
		s.Require().NoError(err)
		s.True(updated.TermsAccepted)
	})

	s.Run("validate failure performs no mutation", func() {
		boom := errors.New("boom")
		_, err := store.Execute(s.ctx, profileID,
			func(*onboarding.Profile) error { return boom },
			func(p *onboarding.Profile) { p.Name = "mutated" },
		)
		s.Require().ErrorIs(err, boom)

		found, err := store.FindByID(s.ctx, profileID)
		s.Require().NoError(err)
		s.Equal("Ana", found.Name)
	})

	s.Run("execute on missing profile returns ErrNotFound", func() {
		_, err := store.Execute(s.ctx, id.ProfileID(uuid.New()),
			func(*onboarding.Profile) error { return nil },
			func(*onboarding.Profile) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestExecuteSerializes drives concurrent conditional updates at one payment
// and verifies exactly one wins.
func (s *MemoryStoreSuite) TestExecuteSerializes() {
	store := NewInMemoryPaymentStore()
	paymentID := id.PaymentID(uuid.New())
	s.Require().NoError(store.Save(s.ctx, &onboarding.Payment{
		ID:     paymentID,
		Status: onboarding.PaymentPending,
	}))

	var wg sync.WaitGroup
	wins := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Execute(s.ctx, paymentID,
				func(p *onboarding.Payment) error {
					if p.Status != onboarding.PaymentPending {
						return sentinel.ErrInvalidState
					}
					return nil
				},
				func(p *onboarding.Payment) { p.Status = onboarding.PaymentApproved },
			)
			if err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	s.Equal(1, count)
}

func (s *MemoryStoreSuite) TestPaymentLookups() {
	store := NewInMemoryPaymentStore()
	profileID := id.ProfileID(uuid.New())
	p := &onboarding.Payment{
		ID:              id.PaymentID(uuid.New()),
		ProfileID:       profileID,
		Gateway:         "pagarme",
		GatewayChargeID: "ch_123",
		CreatedAt:       time.Now(),
	}
	s.Require().NoError(store.Save(s.ctx, p))

	s.Run("finds by gateway attribution", func() {
		found, err := store.FindByGatewayCharge(s.ctx, "pagarme", "ch_123")
		s.Require().NoError(err)
		s.Equal(p.ID, found.ID)
	})

	s.Run("attribution is gateway-scoped", func() {
		_, err := store.FindByGatewayCharge(s.ctx, "mercadopago", "ch_123")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("lists by profile in creation order", func() {
		second := &onboarding.Payment{
			ID:        id.PaymentID(uuid.New()),
			ProfileID: profileID,
			CreatedAt: p.CreatedAt.Add(time.Minute),
		}
		s.Require().NoError(store.Save(s.ctx, second))

		out, err := store.ListByProfile(s.ctx, profileID)
		s.Require().NoError(err)
		s.Require().Len(out, 2)
		s.Equal(p.ID, out[0].ID)
		s.Equal(second.ID, out[1].ID)
	})
}

func (s *MemoryStoreSuite) TestFaceValidationAppendOnly() {
	store := NewInMemoryFaceValidationStore()
	profileID := id.ProfileID(uuid.New())

	s.Require().NoError(store.Append(s.ctx, onboarding.FaceValidation{
		ProfileID: profileID, Passed: false, CreatedAt: time.Now(),
	}))
	s.Require().NoError(store.Append(s.ctx, onboarding.FaceValidation{
		ProfileID: profileID, Passed: true, CreatedAt: time.Now(),
	}))

	attempts, err := store.ListByProfile(s.ctx, profileID)
	s.Require().NoError(err)
	s.Len(attempts, 2)
	s.False(attempts[0].Passed)
	s.True(attempts[1].Passed)
}

func (s *MemoryStoreSuite) TestCardStore() {
	store := NewInMemoryCardStore()
	profileID := id.ProfileID(uuid.New())
	card := &onboarding.Card{
		ID:        id.CardID(uuid.New()),
		ProfileID: profileID,
		Status:    onboarding.CardActive,
	}

	s.Run("creates when absent", func() {
		s.Require().NoError(store.CreateIfAbsent(s.ctx, card))
	})

	s.Run("rejects a second active card for the same profile", func() {
		dup := &onboarding.Card{
			ID:        id.CardID(uuid.New()),
			ProfileID: profileID,
			Status:    onboarding.CardActive,
		}
		err := store.CreateIfAbsent(s.ctx, dup)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("finds by profile", func() {
		found, err := store.FindByProfile(s.ctx, profileID)
		s.Require().NoError(err)
		s.Equal(card.ID, found.ID)
	})
}
