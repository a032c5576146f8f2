package transition

import (
	"context"
	"strconv"
	"strings"

	"carteirinha/internal/admin"
	"carteirinha/internal/audit"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/requestcontext"
)

// ToggleAdminActive flips another staff account's active flag. Only super
// admins may call it, and super accounts are never valid targets.
func (s *Service) ToggleAdminActive(ctx context.Context, targetID id.AdminID, justification string) (audit.Action, error) {
	const name = string(audit.ActionToggleAdminActive)

	actor, err := s.authorize(ctx, admin.RoleSuper)
	if err != nil {
		return audit.Action{}, s.denied(name, err)
	}

	justification = strings.TrimSpace(justification)
	if justification == "" {
		return audit.Action{}, s.denied(name,
			dErrors.New(dErrors.CodeValidation, "justification is required"))
	}

	now := requestcontext.Now(ctx)
	target, err := s.admins.Execute(ctx, targetID,
		func(a *admin.Admin) error {
			return a.CanToggle()
		},
		func(a *admin.Admin) {
			a.ApplyToggle(now)
		},
	)
	if err != nil {
		return audit.Action{}, s.denied(name, translateStoreErr(err, "admin account"))
	}

	return s.record(ctx, audit.Action{
		PerformedBy:  actor.ID,
		ActorRole:    string(actor.Role),
		Type:         audit.ActionToggleAdminActive,
		TargetEntity: target.ID.String(),
		Details:      justification + " (active=" + strconv.FormatBool(target.IsActive) + ")",
	})
}
