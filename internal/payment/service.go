package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"carteirinha/internal/onboarding"
	"carteirinha/internal/onboarding/store"
	"carteirinha/internal/platform/metrics"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/platform/sentinel"
	"carteirinha/pkg/requestcontext"
)

// SnapshotInvalidator drops cached snapshots after a fact changes.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, profileID id.ProfileID)
}

// Service creates charges on the active gateway and reconciles asynchronous
// gateway callbacks into payment rows.
type Service struct {
	payments  store.PaymentStore
	gateways  GatewayStore
	chargers  map[string]Charger
	snapshots SnapshotInvalidator
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(
	payments store.PaymentStore,
	gateways GatewayStore,
	chargers map[string]Charger,
	snapshots SnapshotInvalidator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		payments:  payments,
		gateways:  gateways,
		chargers:  chargers,
		snapshots: snapshots,
		metrics:   m,
		logger:    logger,
	}
}

// CreateCharge opens a charge on the currently active gateway and records a
// pending payment carrying that gateway's attribution. Later gateway
// switches never rewrite the attribution.
func (s *Service) CreateCharge(ctx context.Context, profileID id.ProfileID, method string, amountCents int64) (*onboarding.Payment, error) {
	if method == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "payment method is required")
	}
	if amountCents <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}

	active, err := s.gateways.Active(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "no active payment gateway")
	}
	charger, ok := s.chargers[active.Name]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnavailable, "active gateway has no client configured")
	}

	result, err := charger.CreateCharge(ctx, ChargeRequest{
		Method:      method,
		AmountCents: amountCents,
		CustomerRef: profileID.String(),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "gateway charge creation failed")
	}

	now := requestcontext.Now(ctx)
	p := &onboarding.Payment{
		ID:              id.PaymentID(uuid.New()),
		ProfileID:       profileID,
		Method:          method,
		AmountCents:     amountCents,
		Gateway:         active.Name,
		GatewayChargeID: result.ChargeID,
		Status:          Normalize(active.Name, result.RawStatus),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.payments.Save(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
	}
	s.snapshots.Invalidate(ctx, profileID)
	return p, nil
}

// HandleCallback reconciles one asynchronous gateway notification. The
// update is conditional on the monotonic status machine: duplicates and
// out-of-order callbacks are acknowledged no-ops, and a terminal status
// never regresses.
func (s *Service) HandleCallback(ctx context.Context, gatewayName, chargeID, rawStatus string) error {
	if chargeID == "" {
		return dErrors.New(dErrors.CodeValidation, "charge id is required")
	}

	p, err := s.payments.FindByGatewayCharge(ctx, gatewayName, chargeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementWebhookProcessed(gatewayName, "unknown_charge")
			return dErrors.New(dErrors.CodeNotFound, "no payment for charge")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "payment lookup failed")
	}

	next := Normalize(gatewayName, rawStatus)
	now := requestcontext.Now(ctx)

	applied := true
	_, err = s.payments.Execute(ctx, p.ID,
		func(cur *onboarding.Payment) error {
			if cur.Status == next || !cur.Status.CanTransitionTo(next) {
				applied = false
			}
			return nil
		},
		func(cur *onboarding.Payment) {
			if !applied {
				return
			}
			cur.Status = next
			if next == onboarding.PaymentApproved {
				cur.ConfirmedAt = &now
			}
			cur.UpdatedAt = now
		},
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "payment update failed")
	}

	if applied {
		s.metrics.IncrementWebhookProcessed(gatewayName, string(next))
		s.snapshots.Invalidate(ctx, p.ProfileID)
		s.logger.InfoContext(ctx, "payment reconciled",
			"gateway", gatewayName,
			"charge_id", chargeID,
			"status", string(next),
		)
	} else {
		s.metrics.IncrementWebhookProcessed(gatewayName, "noop")
	}
	return nil
}
