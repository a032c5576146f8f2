// Package store defines the fact store contracts for applicant entities.
// Stores are interface-driven so services stay testable and persistence can
// swap between in-memory and PostgreSQL without rewiring business code.
//
// Mutating operations use the Execute callback pattern: the store holds its
// lock (mutex or SELECT ... FOR UPDATE) across both the validate and mutate
// callbacks, so two staff members cannot double-process the same entity.
// A validate failure performs no mutation. Stores return pkg/platform/sentinel
// errors; services translate them into domain errors.
package store

import (
	"context"

	"carteirinha/internal/onboarding"
	id "carteirinha/pkg/domain"
)

type ProfileStore interface {
	Save(ctx context.Context, profile *onboarding.Profile) error
	FindByID(ctx context.Context, profileID id.ProfileID) (*onboarding.Profile, error)
	// Execute atomically validates then mutates the profile, returning the
	// updated copy.
	Execute(ctx context.Context, profileID id.ProfileID,
		validate func(*onboarding.Profile) error,
		mutate func(*onboarding.Profile)) (*onboarding.Profile, error)
}

type PaymentStore interface {
	Save(ctx context.Context, payment *onboarding.Payment) error
	FindByID(ctx context.Context, paymentID id.PaymentID) (*onboarding.Payment, error)
	FindByGatewayCharge(ctx context.Context, gateway, chargeID string) (*onboarding.Payment, error)
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]onboarding.Payment, error)
	Execute(ctx context.Context, paymentID id.PaymentID,
		validate func(*onboarding.Payment) error,
		mutate func(*onboarding.Payment)) (*onboarding.Payment, error)
}

type DocumentStore interface {
	Save(ctx context.Context, document *onboarding.Document) error
	FindByID(ctx context.Context, documentID id.DocumentID) (*onboarding.Document, error)
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]onboarding.Document, error)
	Execute(ctx context.Context, documentID id.DocumentID,
		validate func(*onboarding.Document) error,
		mutate func(*onboarding.Document)) (*onboarding.Document, error)
}

// FaceValidationStore is append-only; attempts are never updated.
type FaceValidationStore interface {
	Append(ctx context.Context, attempt onboarding.FaceValidation) error
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]onboarding.FaceValidation, error)
}

type CardStore interface {
	// CreateIfAbsent inserts the card only when the profile holds no active
	// card, returning sentinel.ErrConflict otherwise.
	CreateIfAbsent(ctx context.Context, card *onboarding.Card) error
	FindByID(ctx context.Context, cardID id.CardID) (*onboarding.Card, error)
	FindByProfile(ctx context.Context, profileID id.ProfileID) (*onboarding.Card, error)
	Execute(ctx context.Context, cardID id.CardID,
		validate func(*onboarding.Card) error,
		mutate func(*onboarding.Card)) (*onboarding.Card, error)
}
