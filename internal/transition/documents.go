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

// ApproveDocument marks a pending or rejected document approved, clearing
// any earlier rejection fields and stamping the validator.
func (s *Service) ApproveDocument(ctx context.Context, documentID id.DocumentID) (audit.Action, error) {
	const name = string(audit.ActionApproveDocument)

	actor, err := s.authorize(ctx, admin.RoleStaff)
	if err != nil {
		return audit.Action{}, s.denied(name, err)
	}

	now := requestcontext.Now(ctx)
	doc, err := s.documents.Execute(ctx, documentID,
		func(d *onboarding.Document) error {
			return d.CanApprove()
		},
		func(d *onboarding.Document) {
			d.ApplyApproval(actor.ID, now)
		},
	)
	if err != nil {
		return audit.Action{}, s.denied(name, translateStoreErr(err, "document"))
	}

	s.snapshots.Invalidate(ctx, doc.ProfileID)
	return s.record(ctx, audit.Action{
		PerformedBy:   actor.ID,
		ActorRole:     string(actor.Role),
		Type:          audit.ActionApproveDocument,
		TargetProfile: doc.ProfileID,
		TargetEntity:  doc.ID.String(),
		Details:       "document " + string(doc.Type) + " approved",
	})
}

// RejectDocument marks a document rejected. Reason and notes are both
// mandatory and validated before any mutation.
func (s *Service) RejectDocument(ctx context.Context, documentID id.DocumentID, reason, notes string) (audit.Action, error) {
	const name = string(audit.ActionRejectDocument)

	actor, err := s.authorize(ctx, admin.RoleStaff)
	if err != nil {
		return audit.Action{}, s.denied(name, err)
	}

	reason = strings.TrimSpace(reason)
	notes = strings.TrimSpace(notes)
	if reason == "" {
		return audit.Action{}, s.denied(name,
			dErrors.New(dErrors.CodeValidation, "rejection reason is required"))
	}
	if notes == "" {
		return audit.Action{}, s.denied(name,
			dErrors.New(dErrors.CodeValidation, "rejection notes are required"))
	}

	now := requestcontext.Now(ctx)
	doc, err := s.documents.Execute(ctx, documentID,
		func(*onboarding.Document) error { return nil },
		func(d *onboarding.Document) {
			d.ApplyRejection(reason, notes, actor.ID, now)
		},
	)
	if err != nil {
		return audit.Action{}, s.denied(name, translateStoreErr(err, "document"))
	}

	s.snapshots.Invalidate(ctx, doc.ProfileID)
	return s.record(ctx, audit.Action{
		PerformedBy:   actor.ID,
		ActorRole:     string(actor.Role),
		Type:          audit.ActionRejectDocument,
		TargetProfile: doc.ProfileID,
		TargetEntity:  doc.ID.String(),
		Details:       reason + ": " + notes,
	})
}
