// Package onboarding holds the applicant fact model and the eligibility
// resolver. No state column stores "where the applicant is"; the current
// step is derived from persisted facts on every read.
package onboarding

import (
	"time"

	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
)

// EducationLevel classifies the applicant's course level. Law students at a
// qualifying level must pick a plan before paying.
type EducationLevel string

const (
	EducationLevelBasic        EducationLevel = "basic"
	EducationLevelHigher       EducationLevel = "higher"
	EducationLevelPostgraduate EducationLevel = "postgraduate"
)

// Profile carries the applicant's identity facts and forward-only flags.
//
// Invariants:
//   - Flags only advance (false -> true); they never regress automatically.
//   - FaceValidated may be set by the face pipeline or by an audited admin
//     override; the override does not create a FaceValidation attempt row.
type Profile struct {
	ID                    id.ProfileID
	Name                  string
	CPF                   string
	BirthDate             time.Time
	Institution           string
	Course                string
	EducationLevel        EducationLevel
	ProfileCompleted      bool
	TermsAccepted         bool
	IsLawStudent          bool
	ManualReviewRequested bool
	FaceValidated         bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// QualifiesForPlanSelection reports whether the applicant must pass through
// the plan-selection step before payment.
func (p *Profile) QualifiesForPlanSelection() bool {
	return p.IsLawStudent &&
		(p.EducationLevel == EducationLevelHigher || p.EducationLevel == EducationLevelPostgraduate)
}

// CanOverrideFaceValidation checks the admin override precondition.
func (p *Profile) CanOverrideFaceValidation() error {
	if p.FaceValidated {
		return dErrors.New(dErrors.CodePrecondition, "face validation is already set")
	}
	return nil
}

// ApplyFaceValidationOverride flips the flag forward. Call
// CanOverrideFaceValidation first.
func (p *Profile) ApplyFaceValidationOverride(now time.Time) {
	p.FaceValidated = true
	p.UpdatedAt = now
}

// ApplyTermsAcceptance records acceptance; the flag never regresses.
func (p *Profile) ApplyTermsAcceptance(now time.Time) {
	p.TermsAccepted = true
	p.UpdatedAt = now
}

// PaymentStatus is the internal payment vocabulary. Gateway codes are mapped
// into it by the reconciliation adapter.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentApproved   PaymentStatus = "approved"
	PaymentRejected   PaymentStatus = "rejected"
	PaymentRefunded   PaymentStatus = "refunded"
)

// paymentTransitions encodes the monotonic status machine. The only step
// out of a terminal state is approved -> refunded.
var paymentTransitions = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:    {PaymentProcessing: true, PaymentApproved: true, PaymentRejected: true},
	PaymentProcessing: {PaymentApproved: true, PaymentRejected: true},
	PaymentApproved:   {PaymentRefunded: true},
	PaymentRejected:   {},
	PaymentRefunded:   {},
}

// CanTransitionTo reports whether moving to next respects monotonicity.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return paymentTransitions[s][next]
}

// Payment is one charge attempt. A profile may hold several; at most one
// approved payment counts toward eligibility.
type Payment struct {
	ID              id.PaymentID
	ProfileID       id.ProfileID
	Method          string
	AmountCents     int64
	Gateway         string
	GatewayChargeID string
	Status          PaymentStatus
	ReceiptURL      string
	ConfirmedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanMarkPaid checks the manual-confirmation precondition.
func (p *Payment) CanMarkPaid() error {
	if p.Status == PaymentApproved {
		return dErrors.New(dErrors.CodePrecondition, "payment is already approved")
	}
	if !p.Status.CanTransitionTo(PaymentApproved) {
		return dErrors.New(dErrors.CodePrecondition, "payment cannot be approved from status "+string(p.Status))
	}
	return nil
}

// ApplyManualConfirmation marks the payment approved out of band of the
// gateway. Call CanMarkPaid first.
func (p *Payment) ApplyManualConfirmation(receiptURL string, now time.Time) {
	p.Status = PaymentApproved
	p.ConfirmedAt = &now
	p.UpdatedAt = now
	if receiptURL != "" {
		p.ReceiptURL = receiptURL
	}
}

// DocumentType enumerates the document slots an applicant fills.
type DocumentType string

const (
	DocumentIdentity        DocumentType = "identity"
	DocumentAddressProof    DocumentType = "address_proof"
	DocumentEnrollmentProof DocumentType = "enrollment_proof"
	DocumentPhoto           DocumentType = "photo"
	// DocumentSelfie feeds face validation and does not count toward the
	// four required approvals.
	DocumentSelfie DocumentType = "selfie"
)

// RequiredDocumentTypes are the distinct types that must all be approved for
// card eligibility. Eligibility counts distinct approved types, not raw
// approvals, so a resubmitted duplicate cannot satisfy the check twice.
var RequiredDocumentTypes = []DocumentType{
	DocumentIdentity,
	DocumentAddressProof,
	DocumentEnrollmentProof,
	DocumentPhoto,
}

type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

// Document is one uploaded file in a typed slot, reviewed by staff.
type Document struct {
	ID              id.DocumentID
	ProfileID       id.ProfileID
	Type            DocumentType
	Status          DocumentStatus
	FileURL         string
	RejectionReason string
	RejectionNotes  string
	ValidatedBy     id.AdminID
	ValidatedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanApprove checks the review precondition.
func (d *Document) CanApprove() error {
	if d.Status == DocumentApproved {
		return dErrors.New(dErrors.CodePrecondition, "document is already approved")
	}
	return nil
}

// ApplyApproval marks the document approved and clears any earlier
// rejection. Call CanApprove first.
func (d *Document) ApplyApproval(validator id.AdminID, now time.Time) {
	d.Status = DocumentApproved
	d.RejectionReason = ""
	d.RejectionNotes = ""
	d.ValidatedBy = validator
	d.ValidatedAt = &now
	d.UpdatedAt = now
}

// ApplyRejection marks the document rejected with a reason. Reason and notes
// are validated by the transition service before any mutation.
func (d *Document) ApplyRejection(reason, notes string, validator id.AdminID, now time.Time) {
	d.Status = DocumentRejected
	d.RejectionReason = reason
	d.RejectionNotes = notes
	d.ValidatedBy = validator
	d.ValidatedAt = &now
	d.UpdatedAt = now
}

// FaceValidation is one automated pipeline attempt. Attempts are append-only;
// the latest one is authoritative unless an admin override set the profile
// flag directly.
type FaceValidation struct {
	ProfileID  id.ProfileID
	Similarity float64
	Passed     bool
	CreatedAt  time.Time
}

type CardStatus string

const (
	CardNone   CardStatus = "none"
	CardActive CardStatus = "active"
)

type ShippingStatus string

const (
	ShippingNone    ShippingStatus = "none"
	ShippingPrinted ShippingStatus = "printed"
	ShippingShipped ShippingStatus = "shipped"
)

// Card is the issued student ID. At most one active card per profile; it is
// never re-created while active.
type Card struct {
	ID             id.CardID
	ProfileID      id.ProfileID
	Status         CardStatus
	DigitalCardURL string
	ShippingStatus ShippingStatus
	TrackingCode   string
	PrintedAt      *time.Time
	ShippedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsIssued reports whether the card satisfies the terminal milestone.
func (c *Card) IsIssued() bool {
	return c != nil && c.Status == CardActive && c.DigitalCardURL != ""
}

// CanRegisterShipment checks the shipment precondition.
func (c *Card) CanRegisterShipment() error {
	if c.ShippingStatus == ShippingShipped {
		return dErrors.New(dErrors.CodePrecondition, "card is already shipped")
	}
	return nil
}

// ApplyShipment records the tracking code. Call CanRegisterShipment first.
func (c *Card) ApplyShipment(trackingCode string, now time.Time) {
	c.ShippingStatus = ShippingShipped
	c.TrackingCode = trackingCode
	c.ShippedAt = &now
	c.UpdatedAt = now
}

// ApplyPrinted records that the card entered a print batch.
func (c *Card) ApplyPrinted(now time.Time) {
	c.ShippingStatus = ShippingPrinted
	c.PrintedAt = &now
	c.UpdatedAt = now
}

// Snapshot is the full set of facts about one applicant at one point in
// time. The resolver consumes it without touching storage; callers own the
// fetch lifecycle.
type Snapshot struct {
	Profile         *Profile
	Payments        []Payment
	Documents       []Document
	FaceValidations []FaceValidation
	Card            *Card
}

// HasApprovedPayment reports whether any payment satisfies the payment
// milestone. Several approved payments still count once; double-charge
// detection is out of scope here.
func (s Snapshot) HasApprovedPayment() bool {
	for _, p := range s.Payments {
		if p.Status == PaymentApproved {
			return true
		}
	}
	return false
}

// ApprovedRequiredDocuments counts distinct required types that reached
// approved.
func (s Snapshot) ApprovedRequiredDocuments() int {
	approved := make(map[DocumentType]bool)
	for _, d := range s.Documents {
		if d.Status == DocumentApproved {
			approved[d.Type] = true
		}
	}
	n := 0
	for _, t := range RequiredDocumentTypes {
		if approved[t] {
			n++
		}
	}
	return n
}

// DocumentsComplete reports whether every required type is approved.
func (s Snapshot) DocumentsComplete() bool {
	return s.ApprovedRequiredDocuments() == len(RequiredDocumentTypes)
}

// LatestFaceValidation returns the authoritative attempt, or nil when none
// exists.
func (s Snapshot) LatestFaceValidation() *FaceValidation {
	var latest *FaceValidation
	for i := range s.FaceValidations {
		fv := &s.FaceValidations[i]
		if latest == nil || fv.CreatedAt.After(latest.CreatedAt) {
			latest = fv
		}
	}
	return latest
}
