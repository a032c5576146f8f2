// Package domain holds shared domain primitives: typed identifiers used
// across onboarding, payments, and audit.
package domain

import (
	"github.com/google/uuid"

	dErrors "carteirinha/pkg/domain-errors"
)

// Typed IDs prevent accidental cross-entity assignment at compile time.
// Construct via the Parse* helpers at trust boundaries; direct casting
// bypasses validation.
type (
	ProfileID  uuid.UUID
	PaymentID  uuid.UUID
	DocumentID uuid.UUID
	CardID     uuid.UUID
	AdminID    uuid.UUID
)

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id cannot be the nil UUID")
	}
	return u, nil
}

func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseUUID(s)
	return ProfileID(u), err
}

func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID(s)
	return PaymentID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	return DocumentID(u), err
}

func ParseCardID(s string) (CardID, error) {
	u, err := parseUUID(s)
	return CardID(u), err
}

func ParseAdminID(s string) (AdminID, error) {
	u, err := parseUUID(s)
	return AdminID(u), err
}

func (id ProfileID) String() string  { return uuid.UUID(id).String() }
func (id PaymentID) String() string  { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id CardID) String() string     { return uuid.UUID(id).String() }
func (id AdminID) String() string    { return uuid.UUID(id).String() }

func (id ProfileID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CardID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AdminID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
