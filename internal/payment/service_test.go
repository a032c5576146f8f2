package payment

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"carteirinha/internal/onboarding"
	"carteirinha/internal/onboarding/store"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/requestcontext"
)

type fakeInvalidator struct {
	mu    sync.Mutex
	calls []id.ProfileID
}

func (f *fakeInvalidator) Invalidate(_ context.Context, profileID id.ProfileID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, profileID)
}

type PaymentServiceSuite struct {
	suite.Suite
	ctx context.Context
	now time.Time

	payments    *store.InMemoryPaymentStore
	gateways    *InMemoryGatewayStore
	invalidator *fakeInvalidator
	service     *Service
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.payments = store.NewInMemoryPaymentStore()
	s.gateways = NewInMemoryGatewayStore(
		Gateway{Name: GatewayPagarme, IsActive: true},
		Gateway{Name: GatewayMercadoPago},
	)
	s.invalidator = &fakeInvalidator{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.payments, s.gateways, SandboxChargers(), s.invalidator, nil, logger)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *PaymentServiceSuite) TestCreateCharge() {
	profileID := id.ProfileID(uuid.New())

	s.Run("opens a pending charge on the active gateway", func() {
		p, err := s.service.CreateCharge(s.ctx, profileID, "pix", 3500)
		s.Require().NoError(err)
		s.Equal(GatewayPagarme, p.Gateway)
		s.NotEmpty(p.GatewayChargeID)
		s.Equal(onboarding.PaymentPending, p.Status)
	})

	s.Run("attribution survives a gateway switch", func() {
		p, err := s.service.CreateCharge(s.ctx, profileID, "boleto", 3500)
		s.Require().NoError(err)
		s.Require().NoError(s.gateways.SwitchActive(s.ctx, GatewayMercadoPago, s.now))

		// The old charge keeps its gateway and still reconciles there.
		found, err := s.payments.FindByGatewayCharge(s.ctx, GatewayPagarme, p.GatewayChargeID)
		s.Require().NoError(err)
		s.Equal(p.ID, found.ID)

		// New charges go to the new gateway.
		p2, err := s.service.CreateCharge(s.ctx, profileID, "pix", 3500)
		s.Require().NoError(err)
		s.Equal(GatewayMercadoPago, p2.Gateway)
	})

	s.Run("rejects a non-positive amount", func() {
		_, err := s.service.CreateCharge(s.ctx, profileID, "pix", 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a missing method", func() {
		_, err := s.service.CreateCharge(s.ctx, profileID, "", 3500)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *PaymentServiceSuite) seedPayment(status onboarding.PaymentStatus) *onboarding.Payment {
	p := &onboarding.Payment{
		ID:              id.PaymentID(uuid.New()),
		ProfileID:       id.ProfileID(uuid.New()),
		Gateway:         GatewayPagarme,
		GatewayChargeID: "ch_" + uuid.NewString(),
		Status:          status,
	}
	s.Require().NoError(s.payments.Save(context.Background(), p))
	return p
}

func (s *PaymentServiceSuite) status(p *onboarding.Payment) onboarding.PaymentStatus {
	found, err := s.payments.FindByID(context.Background(), p.ID)
	s.Require().NoError(err)
	return found.Status
}

func (s *PaymentServiceSuite) TestHandleCallback() {
	s.Run("approves a pending payment and stamps confirmation", func() {
		p := s.seedPayment(onboarding.PaymentPending)

		err := s.service.HandleCallback(s.ctx, GatewayPagarme, p.GatewayChargeID, "paid")
		s.Require().NoError(err)

		found, err := s.payments.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(onboarding.PaymentApproved, found.Status)
		s.Require().NotNil(found.ConfirmedAt)
		s.True(found.ConfirmedAt.Equal(s.now))
		s.Contains(s.invalidator.calls, p.ProfileID)
	})

	s.Run("duplicate callback is an acknowledged no-op", func() {
		p := s.seedPayment(onboarding.PaymentPending)

		s.Require().NoError(s.service.HandleCallback(s.ctx, GatewayPagarme, p.GatewayChargeID, "paid"))
		s.Require().NoError(s.service.HandleCallback(s.ctx, GatewayPagarme, p.GatewayChargeID, "paid"))
		s.Equal(onboarding.PaymentApproved, s.status(p))
	})

	s.Run("out-of-order regression is ignored", func() {
		p := s.seedPayment(onboarding.PaymentApproved)

		s.Require().NoError(s.service.HandleCallback(s.ctx, GatewayPagarme, p.GatewayChargeID, "processing"))
		s.Equal(onboarding.PaymentApproved, s.status(p))
	})

	s.Run("approved payment can still be refunded", func() {
		p := s.seedPayment(onboarding.PaymentApproved)

		s.Require().NoError(s.service.HandleCallback(s.ctx, GatewayPagarme, p.GatewayChargeID, "refunded"))
		s.Equal(onboarding.PaymentRefunded, s.status(p))
	})

	s.Run("unknown status never approves", func() {
		p := s.seedPayment(onboarding.PaymentPending)

		s.Require().NoError(s.service.HandleCallback(s.ctx, GatewayPagarme, p.GatewayChargeID, "paid_v2"))
		s.Equal(onboarding.PaymentProcessing, s.status(p))
	})

	s.Run("unknown charge maps to not found", func() {
		err := s.service.HandleCallback(s.ctx, GatewayPagarme, "ch_missing", "paid")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("charge id is gateway-scoped", func() {
		p := s.seedPayment(onboarding.PaymentPending)

		err := s.service.HandleCallback(s.ctx, GatewayMercadoPago, p.GatewayChargeID, "approved")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(onboarding.PaymentPending, s.status(p))
	})

	s.Run("missing charge id fails validation", func() {
		err := s.service.HandleCallback(s.ctx, GatewayPagarme, "", "paid")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
