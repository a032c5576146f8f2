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

// OverrideFaceValidation sets the profile's face_validated flag directly,
// bypassing the automated pipeline. The override does not create a new
// face-validation attempt row; the audit action is the only trace, which is
// why the justification is mandatory.
func (s *Service) OverrideFaceValidation(ctx context.Context, profileID id.ProfileID, justification string) (audit.Action, error) {
	const name = string(audit.ActionOverrideFaceValidation)

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
	p, err := s.profiles.Execute(ctx, profileID,
		func(cur *onboarding.Profile) error {
			return cur.CanOverrideFaceValidation()
		},
		func(cur *onboarding.Profile) {
			cur.ApplyFaceValidationOverride(now)
		},
	)
	if err != nil {
		return audit.Action{}, s.denied(name, translateStoreErr(err, "profile"))
	}

	s.snapshots.Invalidate(ctx, p.ID)
	return s.record(ctx, audit.Action{
		PerformedBy:   actor.ID,
		ActorRole:     string(actor.Role),
		Type:          audit.ActionOverrideFaceValidation,
		TargetProfile: p.ID,
		Details:       justification,
	})
}
