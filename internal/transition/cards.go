package transition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"carteirinha/internal/admin"
	"carteirinha/internal/audit"
	"carteirinha/internal/onboarding"
	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
	"carteirinha/pkg/platform/sentinel"
	"carteirinha/pkg/requestcontext"
)

// IssueCard creates the active card once every precondition holds
// simultaneously. Facts are read fresh from the stores, never from a cached
// snapshot, and the insert is conditional so a concurrent issuance cannot
// produce two active cards.
func (s *Service) IssueCard(ctx context.Context, profileID id.ProfileID, digitalCardURL string) (audit.Action, error) {
	const name = string(audit.ActionIssueCard)

	actor, err := s.authorize(ctx, admin.RoleStaff)
	if err != nil {
		return audit.Action{}, s.denied(name, err)
	}

	digitalCardURL = strings.TrimSpace(digitalCardURL)
	if digitalCardURL == "" {
		return audit.Action{}, s.denied(name,
			dErrors.New(dErrors.CodeValidation, "digital card URL is required"))
	}

	snap, err := s.loadFacts(ctx, profileID)
	if err != nil {
		return audit.Action{}, s.denied(name, err)
	}
	if !onboarding.ReadyForIssuance(snap) {
		return audit.Action{}, s.denied(name, dErrors.New(dErrors.CodePrecondition,
			"applicant is not ready for issuance (state "+string(onboarding.Resolve(snap))+")"))
	}

	now := requestcontext.Now(ctx)
	card := &onboarding.Card{
		ID:             id.CardID(uuid.New()),
		ProfileID:      profileID,
		Status:         onboarding.CardActive,
		DigitalCardURL: digitalCardURL,
		ShippingStatus: onboarding.ShippingNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.cards.CreateIfAbsent(ctx, card); err != nil {
		return audit.Action{}, s.denied(name, translateStoreErr(err, "card"))
	}

	s.metrics.IncrementCardsIssued()
	s.snapshots.Invalidate(ctx, profileID)
	return s.record(ctx, audit.Action{
		PerformedBy:   actor.ID,
		ActorRole:     string(actor.Role),
		Type:          audit.ActionIssueCard,
		TargetProfile: profileID,
		TargetEntity:  card.ID.String(),
		Details:       "card issued",
	})
}

// loadFacts assembles the issuance snapshot directly from the stores.
func (s *Service) loadFacts(ctx context.Context, profileID id.ProfileID) (onboarding.Snapshot, error) {
	var snap onboarding.Snapshot

	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return snap, translateStoreErr(err, "profile")
	}
	snap.Profile = profile

	if snap.Payments, err = s.payments.ListByProfile(ctx, profileID); err != nil {
		return snap, translateStoreErr(err, "payments")
	}
	if snap.Documents, err = s.documents.ListByProfile(ctx, profileID); err != nil {
		return snap, translateStoreErr(err, "documents")
	}

	card, err := s.cards.FindByProfile(ctx, profileID)
	switch {
	case err == nil:
		snap.Card = card
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return snap, translateStoreErr(err, "card")
	}
	return snap, nil
}

// RegisterShipment records the physical card leaving the office. The
// tracking code is mandatory.
func (s *Service) RegisterShipment(ctx context.Context, cardID id.CardID, trackingCode string) (audit.Action, error) {
	const name = string(audit.ActionRegisterShipment)

	actor, err := s.authorize(ctx, admin.RoleStaff)
	if err != nil {
		return audit.Action{}, s.denied(name, err)
	}

	trackingCode = strings.TrimSpace(trackingCode)
	if trackingCode == "" {
		return audit.Action{}, s.denied(name,
			dErrors.New(dErrors.CodeValidation, "tracking code is required"))
	}

	now := requestcontext.Now(ctx)
	card, err := s.cards.Execute(ctx, cardID,
		func(c *onboarding.Card) error {
			return c.CanRegisterShipment()
		},
		func(c *onboarding.Card) {
			c.ApplyShipment(trackingCode, now)
		},
	)
	if err != nil {
		return audit.Action{}, s.denied(name, translateStoreErr(err, "card"))
	}

	s.snapshots.Invalidate(ctx, card.ProfileID)
	return s.record(ctx, audit.Action{
		PerformedBy:   actor.ID,
		ActorRole:     string(actor.Role),
		Type:          audit.ActionRegisterShipment,
		TargetProfile: card.ProfileID,
		TargetEntity:  card.ID.String(),
		Details:       "shipped, tracking " + trackingCode,
	})
}

// BatchItemError reports one failed item of a print batch.
type BatchItemError struct {
	CardID id.CardID
	Err    error
}

// BatchResult summarizes a print batch. Failures are isolated per item;
// the batch itself never aborts early.
type BatchResult struct {
	Printed []id.CardID
	Failed  []BatchItemError
}

// PrintBatch marks each selected card printed. Items are processed
// sequentially; a failing item is reported and the batch continues, so
// partial success is the expected outcome, not an error.
func (s *Service) PrintBatch(ctx context.Context, cardIDs []id.CardID) (BatchResult, audit.Action, error) {
	const name = string(audit.ActionPrintBatch)

	actor, err := s.authorize(ctx, admin.RoleStaff)
	if err != nil {
		return BatchResult{}, audit.Action{}, s.denied(name, err)
	}
	if len(cardIDs) == 0 {
		return BatchResult{}, audit.Action{}, s.denied(name,
			dErrors.New(dErrors.CodeValidation, "at least one card must be selected"))
	}

	now := requestcontext.Now(ctx)
	var result BatchResult
	for _, cardID := range cardIDs {
		card, err := s.cards.Execute(ctx, cardID,
			func(c *onboarding.Card) error {
				if c.Status != onboarding.CardActive {
					return dErrors.New(dErrors.CodePrecondition, "card is not active")
				}
				return nil
			},
			func(c *onboarding.Card) {
				c.ApplyPrinted(now)
			},
		)
		if err != nil {
			result.Failed = append(result.Failed, BatchItemError{
				CardID: cardID,
				Err:    translateStoreErr(err, "card"),
			})
			continue
		}
		result.Printed = append(result.Printed, cardID)
		s.snapshots.Invalidate(ctx, card.ProfileID)
	}

	action, err := s.record(ctx, audit.Action{
		PerformedBy: actor.ID,
		ActorRole:   string(actor.Role),
		Type:        audit.ActionPrintBatch,
		Details: fmt.Sprintf("print batch: %d printed, %d failed of %d selected",
			len(result.Printed), len(result.Failed), len(cardIDs)),
	})
	if err != nil {
		return result, audit.Action{}, err
	}
	return result, action, nil
}
