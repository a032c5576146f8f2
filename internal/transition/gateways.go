package transition

import (
	"context"
	"errors"
	"strings"

	"carteirinha/internal/admin"
	"carteirinha/internal/audit"
	"carteirinha/internal/payment"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/platform/sentinel"
	"carteirinha/pkg/requestcontext"
)

// SwitchActiveGateway routes new charges through a different gateway. The
// store applies the flip as one conditional transaction so two gateways can
// never be active at once. Existing payments keep their original gateway
// attribution.
func (s *Service) SwitchActiveGateway(ctx context.Context, gatewayName string) (audit.Action, error) {
	const name = string(audit.ActionSwitchActiveGateway)

	actor, err := s.authorize(ctx, admin.RoleSuper)
	if err != nil {
		return audit.Action{}, s.denied(name, err)
	}

	gatewayName = strings.ToLower(strings.TrimSpace(gatewayName))
	if gatewayName == "" {
		return audit.Action{}, s.denied(name,
			dErrors.New(dErrors.CodeValidation, "gateway identifier is required"))
	}
	if !payment.KnownGateway(gatewayName) {
		return audit.Action{}, s.denied(name,
			dErrors.New(dErrors.CodeValidation, "unknown gateway: "+gatewayName))
	}

	err = s.gateways.SwitchActive(ctx, gatewayName, requestcontext.Now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			err = dErrors.New(dErrors.CodeNotFound, "gateway not configured")
		case errors.Is(err, sentinel.ErrInvalidState):
			err = dErrors.New(dErrors.CodePrecondition, "gateway is already active")
		default:
			err = dErrors.Wrap(err, dErrors.CodeUnavailable, "gateway switch failed")
		}
		return audit.Action{}, s.denied(name, err)
	}

	return s.record(ctx, audit.Action{
		PerformedBy:  actor.ID,
		ActorRole:    string(actor.Role),
		Type:         audit.ActionSwitchActiveGateway,
		TargetEntity: gatewayName,
		Details:      "active gateway switched to " + gatewayName,
	})
}
