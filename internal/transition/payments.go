package transition

import (
	"context"
	"strings"

	"carteirinha/internal/admin"
	"carteirinha/internal/audit"
	"carteirinha/internal/onboarding"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/requestcontext"
)

// MarkPaymentPaid confirms a payment out of band of the gateway, with a
// mandatory justification and an optional receipt. This is the manual
// override path; it does not touch the gateway.
func (s *Service) MarkPaymentPaid(ctx context.Context, paymentID id.PaymentID, justification, receiptURL string) (audit.Action, error) {
	const name = string(audit.ActionMarkPaymentPaid)

	actor, err := s.authorize(ctx, admin.RoleStaff)
	if err != nil {
		return audit.Action{}, s.denied(name, err)
	}

	justification = strings.TrimSpace(justification)
	if justification == "" {
		return audit.Action{}, s.denied(name,
			dErrors.New(dErrors.CodeValidation, "justification is required"))
	}

	now := requestcontext.Now(ctx)
	p, err := s.payments.Execute(ctx, paymentID,
		func(cur *onboarding.Payment) error {
			return cur.CanMarkPaid()
		},
		func(cur *onboarding.Payment) {
			cur.ApplyManualConfirmation(receiptURL, now)
		},
	)
	if err != nil {
		return audit.Action{}, s.denied(name, translateStoreErr(err, "payment"))
	}

	s.snapshots.Invalidate(ctx, p.ProfileID)
	return s.record(ctx, audit.Action{
		PerformedBy:   actor.ID,
		ActorRole:     string(actor.Role),
		Type:          audit.ActionMarkPaymentPaid,
		TargetProfile: p.ProfileID,
		TargetEntity:  p.ID.String(),
		Details:       justification,
	})
}
